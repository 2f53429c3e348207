package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type zapRequest struct {
	Caller        string   `json:"caller"`
	TotalNative   string   `json:"totalNative"`
	NativeForSwap string   `json:"nativeForSwap"`
	Path          []string `json:"path"`
	Recipient     string   `json:"recipient,omitempty"`
	Deadline      int64    `json:"deadline"`
}

type zapResponse struct {
	Token          string `json:"token"`
	NativeForSwap  string `json:"nativeForSwap"`
	TokensReceived string `json:"tokensReceived"`
	TokensUsed     string `json:"tokensUsed"`
	NativeUsed     string `json:"nativeUsed"`
	SharesMinted   string `json:"sharesMinted"`
	TokensRefunded string `json:"tokensRefunded"`
	SwapOnly       bool   `json:"swapOnly"`
}

func (s *Server) handleZap(w http.ResponseWriter, r *http.Request) {
	var req zapRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "caller: " + err.Error()})
		return
	}
	total, err := parseAmount(req.TotalNative)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "totalNative: " + err.Error()})
		return
	}
	forSwap, err := parseAmount(req.NativeForSwap)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nativeForSwap: " + err.Error()})
		return
	}
	path, err := parsePath(req.Path)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path: " + err.Error()})
		return
	}
	var recipient [20]byte
	if strings.TrimSpace(req.Recipient) != "" {
		if recipient, err = parseAddress(req.Recipient); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient: " + err.Error()})
			return
		}
	}
	result, err := s.engine.SwapAndProvisionLiquidity(caller, total, forSwap, path, recipient, req.Deadline)
	if err != nil {
		s.metrics.ObserveFlowFailed("zap")
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveSwapCompleted("zap")
	if !result.SwapOnly {
		s.metrics.ObserveLiquidityAdded()
	}
	if result.TokensRefunded != nil && result.TokensRefunded.Sign() > 0 {
		s.metrics.ObserveTokensRefunded()
	}
	s.writeJSON(w, http.StatusOK, zapResponse{
		Token:          formatAddress(result.Token),
		NativeForSwap:  amountString(result.NativeForSwap),
		TokensReceived: amountString(result.TokensReceived),
		TokensUsed:     amountString(result.TokensUsed),
		NativeUsed:     amountString(result.NativeUsed),
		SharesMinted:   amountString(result.SharesMinted),
		TokensRefunded: amountString(result.TokensRefunded),
		SwapOnly:       result.SwapOnly,
	})
}

type purchaseRequest struct {
	Caller    string   `json:"caller"`
	Value     string   `json:"value"`
	Path      []string `json:"path"`
	MinOut    string   `json:"minOut"`
	Recipient string   `json:"recipient"`
	Deadline  int64    `json:"deadline"`
}

type purchaseResponse struct {
	TokenOut     string `json:"tokenOut"`
	AmountIn     string `json:"amountIn"`
	AmountOutMin string `json:"amountOutMin"`
	AmountOut    string `json:"amountOut"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "caller: " + err.Error()})
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value: " + err.Error()})
		return
	}
	minOut, err := parseAmount(req.MinOut)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "minOut: " + err.Error()})
		return
	}
	path, err := parsePath(req.Path)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path: " + err.Error()})
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient: " + err.Error()})
		return
	}
	result, err := s.engine.PurchaseWithNative(caller, value, path, minOut, recipient, req.Deadline)
	if err != nil {
		s.metrics.ObserveFlowFailed("purchase")
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveSwapCompleted("purchase")
	s.writeJSON(w, http.StatusOK, purchaseResponse{
		TokenOut:     formatAddress(result.TokenOut),
		AmountIn:     amountString(result.AmountIn),
		AmountOutMin: amountString(result.AmountOutMin),
		AmountOut:    amountString(result.AmountOut),
	})
}

type liquidityRequest struct {
	Caller       string `json:"caller"`
	Value        string `json:"value"`
	Token        string `json:"token"`
	TokenDesired string `json:"tokenDesired"`
	TokenMin     string `json:"tokenMin"`
	NativeMin    string `json:"nativeMin"`
	Recipient    string `json:"recipient"`
	Deadline     int64  `json:"deadline"`
}

type liquidityResponse struct {
	TokenUsed    string `json:"tokenUsed"`
	NativeUsed   string `json:"nativeUsed"`
	SharesMinted string `json:"sharesMinted"`
}

func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "caller: " + err.Error()})
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token: " + err.Error()})
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient: " + err.Error()})
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value: " + err.Error()})
		return
	}
	tokenDesired, err := parseAmount(req.TokenDesired)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tokenDesired: " + err.Error()})
		return
	}
	tokenMin, err := parseAmount(req.TokenMin)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tokenMin: " + err.Error()})
		return
	}
	nativeMin, err := parseAmount(req.NativeMin)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nativeMin: " + err.Error()})
		return
	}
	result, err := s.engine.ProvisionLiquidityNative(caller, value, token, tokenDesired, tokenMin, nativeMin, recipient, req.Deadline)
	if err != nil {
		s.metrics.ObserveFlowFailed("liquidity")
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveLiquidityAdded()
	s.writeJSON(w, http.StatusOK, liquidityResponse{
		TokenUsed:    amountString(result.TokenUsed),
		NativeUsed:   amountString(result.NativeUsed),
		SharesMinted: amountString(result.SharesMinted),
	})
}

type custodyRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
	To     string `json:"to,omitempty"`
}

type custodyResponse struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req custodyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "caller: " + err.Error()})
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token: " + err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount: " + err.Error()})
		return
	}
	if err := s.engine.Deposit(caller, token, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveCustodyDeposit()
	s.writeJSON(w, http.StatusOK, custodyResponse{
		Token:   formatAddress(token),
		Balance: amountString(s.engine.CustodyBalance(token)),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req custodyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "caller: " + err.Error()})
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token: " + err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount: " + err.Error()})
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to: " + err.Error()})
		return
	}
	if err := s.engine.Withdraw(caller, token, amount, to); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveCustodyWithdrawal()
	s.writeJSON(w, http.StatusOK, custodyResponse{
		Token:   formatAddress(token),
		Balance: amountString(s.engine.CustodyBalance(token)),
	})
}

func (s *Server) handleCustodyBalance(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token: " + err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, custodyResponse{
		Token:   formatAddress(token),
		Balance: amountString(s.engine.CustodyBalance(token)),
	})
}

type quoteResponse struct {
	Amounts []string `json:"amounts"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount: " + err.Error()})
		return
	}
	rawPath := strings.Split(r.URL.Query().Get("path"), ",")
	path, err := parsePath(rawPath)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path: " + err.Error()})
		return
	}
	amounts, err := s.engine.Quote(amount, path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := quoteResponse{Amounts: make([]string, 0, len(amounts))}
	for _, v := range amounts {
		resp.Amounts = append(resp.Amounts, amountString(v))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type eventsResponse struct {
	Events []storageRecord `json:"events"`
}

type storageRecord struct {
	Seq        int64             `json:"seq"`
	CreatedAt  int64             `json:"createdAt"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "event journal not configured"})
		return
	}
	after := queryInt(r, "after", 0)
	limit := int(queryInt(r, "limit", 100))
	records, err := s.store.ListEvents(r.Context(), after, limit)
	if err != nil {
		s.logger.Error("list events", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "event journal unavailable"})
		return
	}
	resp := eventsResponse{Events: make([]storageRecord, 0, len(records))}
	for _, rec := range records {
		resp.Events = append(resp.Events, storageRecord{
			Seq:        rec.Seq,
			CreatedAt:  rec.CreatedAt,
			Type:       rec.Event.Type,
			Attributes: rec.Event.Attributes,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type positionResponse struct {
	Recipient    string `json:"recipient"`
	Token        string `json:"token"`
	AmountToken  string `json:"amountToken"`
	AmountNative string `json:"amountNative"`
	SharesMinted string `json:"sharesMinted"`
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	recipient, err := parseAddress(chi.URLParam(r, "recipient"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient: " + err.Error()})
		return
	}
	token, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token: " + err.Error()})
		return
	}
	pos, ok := s.sim.Position(recipient, token)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no position recorded"})
		return
	}
	s.writeJSON(w, http.StatusOK, positionResponse{
		Recipient:    formatAddress(recipient),
		Token:        formatAddress(token),
		AmountToken:  amountString(pos.AmountToken),
		AmountNative: amountString(pos.AmountNative),
		SharesMinted: amountString(pos.SharesMinted),
	})
}
