package amm

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

var (
	// ErrInvalidFirstHop indicates a swap path not starting at the wrapped
	// native token.
	ErrInvalidFirstHop = errors.New("amm: path must start at wrapped native")
	// ErrPathTooShort indicates a swap path with fewer than two hops.
	ErrPathTooShort = errors.New("amm: path needs at least two hops")
	// ErrDeadlineExpired indicates a deadline at or before the router clock.
	ErrDeadlineExpired = errors.New("amm: deadline expired")
	// ErrSlippage indicates an output or contribution below the caller's
	// floor.
	ErrSlippage = errors.New("amm: amount below requested minimum")
)

// swapMultiplier is the fixed per-hop price of the simulation: every hop
// multiplies the input by 100.
const swapMultiplier = 100

// LiquidityPosition is the simplified per (recipient, token) record kept by
// the simulation. It is overwritten on every provisioning call; it is not a
// pool model.
type LiquidityPosition struct {
	AmountToken  *big.Int
	AmountNative *big.Int
	SharesMinted *big.Int
}

// Router executes swaps and liquidity provisioning with deterministic
// pricing so the orchestrator's accounting can be asserted mechanically.
type Router struct {
	address       [20]byte
	wrappedNative [20]byte
	factory       *Factory
	ledger        *TokenLedger
	nowFn         func() int64

	mu        sync.Mutex
	positions map[[20]byte]map[[20]byte]*LiquidityPosition
}

// NewRouter constructs a router bound to the supplied factory and token
// ledger.
func NewRouter(address, wrappedNative [20]byte, factory *Factory, ledger *TokenLedger) *Router {
	return &Router{
		address:       address,
		wrappedNative: wrappedNative,
		factory:       factory,
		ledger:        ledger,
		nowFn:         func() int64 { return time.Now().Unix() },
		positions:     make(map[[20]byte]map[[20]byte]*LiquidityPosition),
	}
}

// SetNowFunc overrides the router clock, primarily for deterministic tests.
func (r *Router) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// Address returns the router's own address.
func (r *Router) Address() [20]byte { return r.address }

// WrappedNative returns the wrapped native token address.
func (r *Router) WrappedNative() [20]byte { return r.wrappedNative }

// Factory returns the pair registry address.
func (r *Router) Factory() [20]byte { return r.factory.Address() }

// Registry returns the pair registry itself.
func (r *Router) Registry() *Factory { return r.factory }

// SwapExactNativeForTokens swaps the supplied native amount along the path,
// minting the output token to the recipient. Pricing applies the fixed
// multiplier once per hop.
func (r *Router) SwapExactNativeForTokens(nativeIn *big.Int, path [][20]byte, minOut *big.Int, recipient [20]byte, deadline int64) ([]*big.Int, error) {
	if nativeIn == nil || nativeIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if len(path) < 2 {
		return nil, ErrPathTooShort
	}
	if path[0] != r.wrappedNative {
		return nil, ErrInvalidFirstHop
	}
	if deadline <= r.now() {
		return nil, ErrDeadlineExpired
	}
	amounts, err := r.price(nativeIn, path)
	if err != nil {
		return nil, err
	}
	out := amounts[len(amounts)-1]
	if minOut != nil && minOut.Sign() > 0 && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrSlippage, out, minOut)
	}
	for i := 0; i+1 < len(path); i++ {
		if _, err := r.factory.CreatePair(path[i], path[i+1]); err != nil {
			return nil, fmt.Errorf("amm: register pair: %w", err)
		}
	}
	r.ledger.Mint(path[len(path)-1], recipient, out)
	return amounts, nil
}

// QuoteNativeForTokens prices the path without side effects.
func (r *Router) QuoteNativeForTokens(amountIn *big.Int, path [][20]byte) ([]*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if len(path) < 2 {
		return nil, ErrPathTooShort
	}
	return r.price(amountIn, path)
}

// AddLiquidityNative pulls the desired token amount from the payer, pairs
// it with the supplied native amount and mints shares to the recipient:
// shares = (tokenUsed + nativeUsed) / 2, truncating. The position recorded
// for (recipient, token) is overwritten on each call.
func (r *Router) AddLiquidityNative(payer, token [20]byte, tokenDesired, tokenMin, nativeMin, nativeIn *big.Int, recipient [20]byte, deadline int64) (*big.Int, *big.Int, *big.Int, error) {
	if token == ([20]byte{}) {
		return nil, nil, nil, ErrZeroAddress
	}
	if tokenDesired == nil || tokenDesired.Sign() <= 0 {
		return nil, nil, nil, ErrZeroAmount
	}
	if nativeIn == nil || nativeIn.Sign() <= 0 {
		return nil, nil, nil, ErrZeroAmount
	}
	if deadline <= r.now() {
		return nil, nil, nil, ErrDeadlineExpired
	}

	tokenUsed := clone(tokenDesired)
	nativeUsed := clone(nativeIn)
	if tokenMin != nil && tokenUsed.Cmp(tokenMin) < 0 {
		return nil, nil, nil, fmt.Errorf("%w: token contribution", ErrSlippage)
	}
	if nativeMin != nil && nativeUsed.Cmp(nativeMin) < 0 {
		return nil, nil, nil, fmt.Errorf("%w: native contribution", ErrSlippage)
	}

	if ok, err := r.ledger.TransferFrom(token, r.address, payer, r.address, tokenUsed); err != nil || !ok {
		if err == nil {
			err = ErrInsufficientAllowance
		}
		return nil, nil, nil, fmt.Errorf("amm: pull token: %w", err)
	}
	if _, err := r.factory.CreatePair(token, r.wrappedNative); err != nil {
		return nil, nil, nil, fmt.Errorf("amm: register pair: %w", err)
	}

	shares := new(big.Int).Add(tokenUsed, nativeUsed)
	shares.Div(shares, big.NewInt(2))
	r.recordPosition(recipient, token, &LiquidityPosition{
		AmountToken:  clone(tokenUsed),
		AmountNative: clone(nativeUsed),
		SharesMinted: clone(shares),
	})
	return tokenUsed, nativeUsed, shares, nil
}

// Position returns the last recorded liquidity position for the recipient
// and token.
func (r *Router) Position(recipient, token [20]byte) (*LiquidityPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inner := r.positions[recipient]
	if inner == nil {
		return nil, false
	}
	pos, ok := inner[token]
	if !ok {
		return nil, false
	}
	return &LiquidityPosition{
		AmountToken:  clone(pos.AmountToken),
		AmountNative: clone(pos.AmountNative),
		SharesMinted: clone(pos.SharesMinted),
	}, true
}

func (r *Router) recordPosition(recipient, token [20]byte, pos *LiquidityPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inner := r.positions[recipient]
	if inner == nil {
		inner = make(map[[20]byte]*LiquidityPosition)
		r.positions[recipient] = inner
	}
	inner[token] = pos
}

func (r *Router) price(amountIn *big.Int, path [][20]byte) ([]*big.Int, error) {
	amounts := make([]*big.Int, len(path))
	amounts[0] = clone(amountIn)
	for i := 1; i < len(path); i++ {
		amounts[i] = new(big.Int).Mul(amounts[i-1], big.NewInt(swapMultiplier))
	}
	return amounts, nil
}

func (r *Router) now() int64 {
	if r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}
