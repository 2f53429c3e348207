package zap

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"poolzap/core/events"
	"poolzap/core/types"
)

var (
	// ErrReentrantCall indicates a nested or concurrent entry into the engine
	// while another operation was still in flight.
	ErrReentrantCall = errors.New("zap: reentrant call rejected")
	// ErrInvalidPath indicates a swap path that is too short or does not
	// start at the wrapped native token.
	ErrInvalidPath = errors.New("zap: invalid swap path")
	// ErrInvalidRecipient indicates a zero recipient address.
	ErrInvalidRecipient = errors.New("zap: recipient must not be the zero address")
	// ErrInvalidToken indicates a zero token address.
	ErrInvalidToken = errors.New("zap: token must not be the zero address")
	// ErrDeadlineExpired indicates a deadline at or before the current time.
	ErrDeadlineExpired = errors.New("zap: deadline expired")
	// ErrZeroAmount indicates a zero or missing amount where a positive one
	// is required.
	ErrZeroAmount = errors.New("zap: amount must be positive")
	// ErrZeroSwapAmount indicates the swap portion of an atomic flow was zero.
	ErrZeroSwapAmount = errors.New("zap: swap amount must be positive")
	// ErrInsufficientSupplied indicates the attached native amount does not
	// cover the requested swap amount.
	ErrInsufficientSupplied = errors.New("zap: attached native below swap amount")
	// ErrSwapProducedZero indicates the router reported a zero output for the
	// swap leg.
	ErrSwapProducedZero = errors.New("zap: swap produced zero output")
	// ErrInsufficientCustody indicates the custody balance cannot cover the
	// requested amount.
	ErrInsufficientCustody = errors.New("zap: insufficient custody balance")
	// ErrTransferFailed indicates the token service signalled a failed
	// transfer.
	ErrTransferFailed = errors.New("zap: token transfer failed")
	// ErrApprovalFailed indicates the token service rejected an allowance
	// grant.
	ErrApprovalFailed = errors.New("zap: token approval failed")
	// ErrUnauthorized indicates a custody operation restricted to the owner.
	ErrUnauthorized = errors.New("zap: caller is not the custody owner")

	errNilRouter = errors.New("zap: router not configured")
	errNilTokens = errors.New("zap: token service not configured")
)

// Router is the subset of the AMM router consumed by the engine.
type Router interface {
	SwapExactNativeForTokens(nativeIn *big.Int, path [][20]byte, minOut *big.Int, recipient [20]byte, deadline int64) ([]*big.Int, error)
	AddLiquidityNative(payer, token [20]byte, tokenDesired, tokenMin, nativeMin, nativeIn *big.Int, recipient [20]byte, deadline int64) (tokenUsed, nativeUsed, sharesMinted *big.Int, err error)
	QuoteNativeForTokens(amountIn *big.Int, path [][20]byte) ([]*big.Int, error)
	WrappedNative() [20]byte
	Factory() [20]byte
	Address() [20]byte
}

// TokenService is the subset of the fungible token service consumed by the
// engine. Transfers report failure either through the boolean or the error.
type TokenService interface {
	BalanceOf(token, owner [20]byte) (*big.Int, error)
	Transfer(token, from, to [20]byte, amount *big.Int) (bool, error)
	TransferFrom(token, spender, from, to [20]byte, amount *big.Int) (bool, error)
	Approve(token, owner, spender [20]byte, amount *big.Int) (bool, error)
}

const defaultDeadlineGrace = 5 * time.Minute

// Engine orchestrates the swap-then-liquidity flow against an AMM router. It
// owns the custody balances exclusively and serializes every public entry
// point behind a reentrancy guard.
type Engine struct {
	router        Router
	tokens        TokenService
	self          [20]byte
	owner         [20]byte
	wrappedNative [20]byte

	emitter          events.Emitter
	nowFn            func() int64
	strictDeadline   bool
	deadlineGrace    time.Duration
	slippageFloorBps uint64

	mu      sync.Mutex
	busy    bool
	custody map[[20]byte]*big.Int
}

// NewEngine constructs an engine with immutable collaborator bindings. The
// self address identifies the engine's own token account; the owner address
// arbitrates custody withdrawals.
func NewEngine(router Router, tokens TokenService, self, owner [20]byte) (*Engine, error) {
	if router == nil {
		return nil, errNilRouter
	}
	if tokens == nil {
		return nil, errNilTokens
	}
	return &Engine{
		router:         router,
		tokens:         tokens,
		self:           self,
		owner:          owner,
		wrappedNative:  router.WrappedNative(),
		emitter:        events.NoopEmitter{},
		nowFn:          func() int64 { return time.Now().Unix() },
		strictDeadline: true,
		deadlineGrace:  defaultDeadlineGrace,
		custody:        make(map[[20]byte]*big.Int),
	}, nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetDeadlinePolicy controls how the atomic flow treats an already expired
// deadline. In strict mode the call fails with ErrDeadlineExpired; otherwise
// a fresh deadline of now plus the supplied grace is substituted.
func (e *Engine) SetDeadlinePolicy(strict bool, grace time.Duration) {
	e.strictDeadline = strict
	if grace <= 0 {
		grace = defaultDeadlineGrace
	}
	e.deadlineGrace = grace
}

// SetSlippageFloorBps derives a minimum-output floor for the swap leg of the
// atomic flow from the router quote. Zero keeps the legacy behaviour of no
// floor.
func (e *Engine) SetSlippageFloorBps(bps uint64) {
	if bps > 10_000 {
		bps = 10_000
	}
	e.slippageFloorBps = bps
}

// Owner returns the custody owner address.
func (e *Engine) Owner() [20]byte { return e.owner }

// Self returns the engine's own token account address.
func (e *Engine) Self() [20]byte { return e.self }

func (e *Engine) enter() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return ErrReentrantCall
	}
	e.busy = true
	return nil
}

func (e *Engine) exit() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(zapEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func validatePath(path [][20]byte, wrappedNative [20]byte) error {
	if len(path) < 2 {
		return fmt.Errorf("%w: need at least two hops, got %d", ErrInvalidPath, len(path))
	}
	if path[0] != wrappedNative {
		return fmt.Errorf("%w: first hop must be the wrapped native token", ErrInvalidPath)
	}
	return nil
}

// PurchaseWithNative swaps the attached native amount for the final token of
// the supplied path. The router delivers the output directly to the
// recipient; the engine never holds the purchased tokens.
func (e *Engine) PurchaseWithNative(caller [20]byte, value *big.Int, path [][20]byte, minOut *big.Int, recipient [20]byte, deadline int64) (*PurchaseResult, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	if err := validatePath(path, e.wrappedNative); err != nil {
		return nil, err
	}
	if isZeroAddress(recipient) {
		return nil, ErrInvalidRecipient
	}
	if deadline <= e.now() {
		return nil, ErrDeadlineExpired
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	tokenOut := path[len(path)-1]
	amounts, err := e.router.SwapExactNativeForTokens(value, path, cloneBigInt(minOut), recipient, deadline)
	if err != nil {
		e.emit(NewSwapFailedEvent(caller, tokenOut, value, err))
		return nil, fmt.Errorf("zap: swap leg: %w", err)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("zap: router returned no amounts")
	}
	amountOut := cloneBigInt(amounts[len(amounts)-1])
	result := &PurchaseResult{
		TokenOut:     tokenOut,
		AmountIn:     cloneBigInt(value),
		AmountOutMin: cloneBigInt(minOut),
		AmountOut:    amountOut,
	}
	e.emit(NewPurchaseCompletedEvent(caller, result))
	return result, nil
}

// ProvisionLiquidityNative provisions liquidity from previously deposited
// custody tokens plus the attached native amount. Unused custody remains in
// the ledger; allowance left after a partial fill is not reset.
func (e *Engine) ProvisionLiquidityNative(caller [20]byte, value *big.Int, token [20]byte, tokenDesired, tokenMin, nativeMin *big.Int, recipient [20]byte, deadline int64) (*LiquidityResult, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	if isZeroAddress(token) {
		return nil, ErrInvalidToken
	}
	if isZeroAddress(recipient) {
		return nil, ErrInvalidRecipient
	}
	if deadline <= e.now() {
		return nil, ErrDeadlineExpired
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if tokenDesired == nil || tokenDesired.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if e.custodyBalance(token).Cmp(tokenDesired) < 0 {
		return nil, ErrInsufficientCustody
	}

	if err := e.approveRouter(token, tokenDesired); err != nil {
		return nil, err
	}
	tokenUsed, nativeUsed, shares, err := e.router.AddLiquidityNative(e.self, token, cloneBigInt(tokenDesired), cloneBigInt(tokenMin), cloneBigInt(nativeMin), cloneBigInt(value), recipient, deadline)
	if err != nil {
		e.emit(NewLiquidityFailedEvent(caller, token, tokenDesired, value, err))
		return nil, fmt.Errorf("zap: liquidity leg: %w", err)
	}
	result := &LiquidityResult{
		TokenUsed:    cloneBigInt(tokenUsed),
		NativeUsed:   cloneBigInt(nativeUsed),
		SharesMinted: cloneBigInt(shares),
	}
	if err := e.custodyDebit(token, result.TokenUsed); err != nil {
		return nil, err
	}
	e.emit(NewLiquidityAddedEvent(caller, token, recipient, result))
	return result, nil
}

// SwapAndProvisionLiquidity runs the composite flow: swap nativeForSwap into
// the final path token, then provision liquidity with the remainder of the
// attached native amount. Applied external effects are recorded in a
// compensation log and reversed synchronously when a later leg fails, so the
// caller never loses the swapped tokens.
func (e *Engine) SwapAndProvisionLiquidity(caller [20]byte, totalNative, nativeForSwap *big.Int, path [][20]byte, recipient [20]byte, deadline int64) (*ZapResult, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	if nativeForSwap == nil || nativeForSwap.Sign() <= 0 {
		return nil, ErrZeroSwapAmount
	}
	if totalNative == nil || totalNative.Cmp(nativeForSwap) < 0 {
		return nil, ErrInsufficientSupplied
	}
	if err := validatePath(path, e.wrappedNative); err != nil {
		return nil, err
	}

	token := path[len(path)-1]
	effRecipient := recipient
	if isZeroAddress(effRecipient) {
		effRecipient = caller
	}
	now := e.now()
	effDeadline := deadline
	if effDeadline <= now {
		if e.strictDeadline {
			return nil, ErrDeadlineExpired
		}
		effDeadline = now + int64(e.deadlineGrace/time.Second)
	}

	minOut, err := e.swapFloor(nativeForSwap, path)
	if err != nil {
		return nil, err
	}

	amounts, err := e.router.SwapExactNativeForTokens(cloneBigInt(nativeForSwap), path, minOut, e.self, effDeadline)
	if err != nil {
		e.emit(NewSwapFailedEvent(caller, token, nativeForSwap, err))
		return nil, fmt.Errorf("zap: swap leg: %w", err)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("zap: router returned no amounts")
	}
	received := cloneBigInt(amounts[len(amounts)-1])
	if received.Sign() == 0 {
		e.emit(NewSwapFailedEvent(caller, token, nativeForSwap, ErrSwapProducedZero))
		return nil, ErrSwapProducedZero
	}

	// The swap leg has applied an external effect: the engine now holds the
	// received tokens. Record the compensating action before any further
	// external call.
	comp := newCompensationLog()
	comp.record(fmt.Sprintf("refund %s of %s to caller", received.String(), formatAddress(token)), func() error {
		return e.payOut(token, caller, received)
	})

	nativeForLiquidity := new(big.Int).Sub(totalNative, nativeForSwap)
	result := &ZapResult{
		Token:          token,
		NativeForSwap:  cloneBigInt(nativeForSwap),
		TokensReceived: received,
		TokensUsed:     big.NewInt(0),
		NativeUsed:     big.NewInt(0),
		SharesMinted:   big.NewInt(0),
		TokensRefunded: big.NewInt(0),
	}

	if nativeForLiquidity.Sign() == 0 {
		if err := e.payOut(token, caller, received); err != nil {
			return nil, err
		}
		result.SwapOnly = true
		result.TokensRefunded = cloneBigInt(received)
		e.emit(NewSwapOnlyCompletedEvent(caller, result))
		return result, nil
	}

	if err := e.approveRouter(token, received); err != nil {
		return nil, comp.unwind(err)
	}
	tokenUsed, nativeUsed, shares, err := e.router.AddLiquidityNative(e.self, token, cloneBigInt(received), big.NewInt(0), big.NewInt(0), nativeForLiquidity, effRecipient, effDeadline)
	if err != nil {
		e.emit(NewLiquidityFailedEvent(caller, token, received, nativeForLiquidity, err))
		return nil, comp.unwind(fmt.Errorf("zap: liquidity leg: %w", err))
	}
	result.TokensUsed = cloneBigInt(tokenUsed)
	result.NativeUsed = cloneBigInt(nativeUsed)
	result.SharesMinted = cloneBigInt(shares)

	unused := new(big.Int).Sub(received, result.TokensUsed)
	if unused.Sign() > 0 {
		if err := e.payOut(token, caller, unused); err != nil {
			return nil, err
		}
		result.TokensRefunded = unused
	}
	e.emit(NewZapCompletedEvent(caller, result))
	return result, nil
}

// Quote mirrors the router quote for the supplied path without side effects.
func (e *Engine) Quote(amountIn *big.Int, path [][20]byte) ([]*big.Int, error) {
	if err := validatePath(path, e.wrappedNative); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	return e.router.QuoteNativeForTokens(cloneBigInt(amountIn), path)
}

func (e *Engine) swapFloor(amountIn *big.Int, path [][20]byte) (*big.Int, error) {
	if e.slippageFloorBps == 0 {
		return big.NewInt(0), nil
	}
	amounts, err := e.router.QuoteNativeForTokens(cloneBigInt(amountIn), path)
	if err != nil {
		return nil, fmt.Errorf("zap: quote for slippage floor: %w", err)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("zap: router quote returned no amounts")
	}
	expected := cloneBigInt(amounts[len(amounts)-1])
	floor := new(big.Int).Mul(expected, big.NewInt(int64(10_000-e.slippageFloorBps)))
	return floor.Div(floor, big.NewInt(10_000)), nil
}

func (e *Engine) approveRouter(token [20]byte, amount *big.Int) error {
	ok, err := e.tokens.Approve(token, e.self, e.router.Address(), cloneBigInt(amount))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}
	if !ok {
		return ErrApprovalFailed
	}
	return nil
}

func (e *Engine) payOut(token [20]byte, to [20]byte, amount *big.Int) error {
	ok, err := e.tokens.Transfer(token, e.self, to, cloneBigInt(amount))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return ErrTransferFailed
	}
	return nil
}
