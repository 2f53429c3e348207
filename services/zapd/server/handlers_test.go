package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"poolzap/core/events"
	"poolzap/native/amm"
	"poolzap/native/zap"
	"poolzap/observability/logging"
	"poolzap/services/zapd/storage"
)

const testNow int64 = 1_700_000_000

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func hexAddress(fill byte) string {
	return formatAddress(newTestAddress(fill))
}

type testHarness struct {
	server *Server
	ledger *amm.TokenLedger
	sim    *amm.Router
	engine *zap.Engine
	store  *storage.Storage
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	wrappedNative := newTestAddress(0x11)
	routerAddr := newTestAddress(0x33)
	factoryAddr := newTestAddress(0x44)
	engineAddr := newTestAddress(0x55)
	ownerAddr := newTestAddress(0x66)

	ledger := amm.NewTokenLedger()
	factory := amm.NewFactory(factoryAddr)
	sim := amm.NewRouter(routerAddr, wrappedNative, factory, ledger)
	sim.SetNowFunc(func() int64 { return testNow })

	engine, err := zap.NewEngine(sim, ledger, engineAddr, ownerAddr)
	require.NoError(t, err)
	engine.SetNowFunc(func() int64 { return testNow })
	engine.SetEmitter(events.NewMemoryEmitter(0))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := storage.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv, err := New(Config{ListenAddress: ":0"}, engine, sim, store, logging.Setup("zapd-test", "test"))
	require.NoError(t, err)
	return &testHarness{server: srv, ledger: ledger, sim: sim, engine: engine, store: store}
}

func (h *testHarness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestZapEndpointHappyPath(t *testing.T) {
	h := newTestHarness(t)
	req := zapRequest{
		Caller:        hexAddress(0x77),
		TotalNative:   "10",
		NativeForSwap: "5",
		Path:          []string{hexAddress(0x11), hexAddress(0x22)},
		Recipient:     hexAddress(0x88),
		Deadline:      testNow + 60,
	}
	rec := h.do(t, http.MethodPost, "/v1/zap", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp zapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, hexAddress(0x22), resp.Token)
	require.Equal(t, "5", resp.NativeForSwap)
	require.Equal(t, "500", resp.TokensReceived)
	require.Equal(t, "500", resp.TokensUsed)
	require.Equal(t, "5", resp.NativeUsed)
	require.Equal(t, "252", resp.SharesMinted)
	require.Equal(t, "0", resp.TokensRefunded)
	require.False(t, resp.SwapOnly)

	pos, ok := h.sim.Position(newTestAddress(0x88), newTestAddress(0x22))
	require.True(t, ok)
	require.Equal(t, "252", pos.SharesMinted.String())
}

func TestZapEndpointValidationStatus(t *testing.T) {
	h := newTestHarness(t)
	req := zapRequest{
		Caller:        hexAddress(0x77),
		TotalNative:   "10",
		NativeForSwap: "5",
		Path:          []string{hexAddress(0x22), hexAddress(0x11)},
		Deadline:      testNow + 60,
	}
	rec := h.do(t, http.MethodPost, "/v1/zap", req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Error, "invalid swap path")
}

func TestZapEndpointRejectsMalformedBody(t *testing.T) {
	h := newTestHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/zap", bytes.NewReader([]byte(`{"caller": 12}`)))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseEndpoint(t *testing.T) {
	h := newTestHarness(t)
	req := purchaseRequest{
		Caller:    hexAddress(0x77),
		Value:     "3",
		Path:      []string{hexAddress(0x11), hexAddress(0x22)},
		MinOut:    "300",
		Recipient: hexAddress(0x88),
		Deadline:  testNow + 60,
	}
	rec := h.do(t, http.MethodPost, "/v1/purchase", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp purchaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "300", resp.AmountOut)

	balance, err := h.ledger.BalanceOf(newTestAddress(0x22), newTestAddress(0x88))
	require.NoError(t, err)
	require.Equal(t, "300", balance.String())
}

func TestCustodyDepositAndLiquidity(t *testing.T) {
	h := newTestHarness(t)
	caller := newTestAddress(0x77)
	token := newTestAddress(0x22)
	engineAddr := newTestAddress(0x55)

	h.ledger.Mint(token, caller, big.NewInt(100))
	ok, err := h.ledger.Approve(token, caller, engineAddr, big.NewInt(100))
	require.NoError(t, err)
	require.True(t, ok)

	rec := h.do(t, http.MethodPost, "/v1/custody/deposit", custodyRequest{
		Caller: hexAddress(0x77),
		Token:  hexAddress(0x22),
		Amount: "100",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dep custodyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	require.Equal(t, "100", dep.Balance)

	rec = h.do(t, http.MethodPost, "/v1/liquidity", liquidityRequest{
		Caller:       hexAddress(0x77),
		Value:        "1",
		Token:        hexAddress(0x22),
		TokenDesired: "100",
		TokenMin:     "0",
		NativeMin:    "0",
		Recipient:    hexAddress(0x77),
		Deadline:     testNow + 60,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var liq liquidityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liq))
	require.Equal(t, "100", liq.TokenUsed)
	require.Equal(t, "1", liq.NativeUsed)
	require.Equal(t, "50", liq.SharesMinted)

	rec = h.do(t, http.MethodGet, "/v1/custody/"+hexAddress(0x22), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal custodyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	require.Equal(t, "0", bal.Balance)
}

func TestWithdrawRequiresOwner(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodPost, "/v1/custody/withdraw", custodyRequest{
		Caller: hexAddress(0x77),
		Token:  hexAddress(0x22),
		Amount: "10",
		To:     hexAddress(0x77),
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestHarness(t)
	target := fmt.Sprintf("/v1/quote?amount=7&path=%s,%s", hexAddress(0x11), hexAddress(0x22))
	rec := h.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"7", "700"}, resp.Amounts)
}

func TestEventsEndpointReturnsJournal(t *testing.T) {
	h := newTestHarness(t)
	journal := storage.NewJournal(h.store, nil)
	journal.SetNowFunc(func() int64 { return testNow })
	h.engine.SetEmitter(journal)

	req := zapRequest{
		Caller:        hexAddress(0x77),
		TotalNative:   "10",
		NativeForSwap: "5",
		Path:          []string{hexAddress(0x11), hexAddress(0x22)},
		Deadline:      testNow + 60,
	}
	rec := h.do(t, http.MethodPost, "/v1/zap", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/events?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Events)
	last := resp.Events[len(resp.Events)-1]
	require.Equal(t, "zap.swap_liquidity_completed", last.Type)
	require.Equal(t, hexAddress(0x77), last.Attributes["initiator"])
}

func TestPositionEndpoint(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, fmt.Sprintf("/v1/positions/%s/%s", hexAddress(0x88), hexAddress(0x22)), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := zapRequest{
		Caller:        hexAddress(0x77),
		TotalNative:   "10",
		NativeForSwap: "5",
		Path:          []string{hexAddress(0x11), hexAddress(0x22)},
		Recipient:     hexAddress(0x88),
		Deadline:      testNow + 60,
	}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/v1/zap", req).Code)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/v1/positions/%s/%s", hexAddress(0x88), hexAddress(0x22)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "500", resp.AmountToken)
	require.Equal(t, "5", resp.AmountNative)
	require.Equal(t, "252", resp.SharesMinted)
}
