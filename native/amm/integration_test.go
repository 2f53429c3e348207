package amm

import (
	"errors"
	"math/big"
	"testing"

	"poolzap/native/zap"
)

// The tests below wire the real orchestrator engine against the simulation,
// asserting the end-to-end accounting the engine-level mocks cannot.

type harness struct {
	engine *Router
	ledger *TokenLedger
	zap    *zap.Engine

	wrapped [20]byte
	token   [20]byte
	self    [20]byte
	owner   [20]byte
	caller  [20]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		wrapped: addr(0x11),
		token:   addr(0x22),
		self:    addr(0x55),
		owner:   addr(0x66),
		caller:  addr(0x77),
	}
	h.ledger = NewTokenLedger()
	factory := NewFactory(addr(0xF0))
	h.engine = NewRouter(addr(0xA0), h.wrapped, factory, h.ledger)
	h.engine.SetNowFunc(func() int64 { return routerTestNow })

	engine, err := zap.NewEngine(h.engine, h.ledger, h.self, h.owner)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetNowFunc(func() int64 { return routerTestNow })
	h.zap = engine
	return h
}

func (h *harness) path() [][20]byte {
	return [][20]byte{h.wrapped, h.token}
}

func TestEndToEndZapAccounting(t *testing.T) {
	h := newHarness(t)
	recipient := addr(0x99)

	// Scenario: total 10, swap 5 in the integer domain.
	res, err := h.zap.SwapAndProvisionLiquidity(h.caller, big.NewInt(10), big.NewInt(5), h.path(), recipient, routerTestNow+300)
	if err != nil {
		t.Fatalf("zap: %v", err)
	}
	if res.TokensReceived.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("tokens received = %s, want 500", res.TokensReceived)
	}
	if res.NativeUsed.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("native used = %s, want 5", res.NativeUsed)
	}
	if res.SharesMinted.Cmp(big.NewInt(252)) != 0 {
		t.Fatalf("shares = %s, want 252", res.SharesMinted)
	}

	pos, ok := h.engine.Position(recipient, h.token)
	if !ok {
		t.Fatal("position not recorded")
	}
	if pos.AmountToken.Cmp(big.NewInt(500)) != 0 || pos.AmountNative.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("position %s/%s, want 500/5", pos.AmountToken, pos.AmountNative)
	}

	// The simulation consumes the full swap output, so nothing remains with
	// the engine and nothing was refunded.
	engineBalance, _ := h.ledger.BalanceOf(h.token, h.self)
	if engineBalance.Sign() != 0 {
		t.Fatalf("engine retained %s tokens", engineBalance)
	}
	if res.TokensRefunded.Sign() != 0 {
		t.Fatalf("refund = %s, want 0", res.TokensRefunded)
	}
}

func TestEndToEndLastWriteWins(t *testing.T) {
	h := newHarness(t)
	recipient := addr(0x99)

	for i := 0; i < 2; i++ {
		if _, err := h.zap.SwapAndProvisionLiquidity(h.caller, big.NewInt(10), big.NewInt(5), h.path(), recipient, routerTestNow+300); err != nil {
			t.Fatalf("zap %d: %v", i, err)
		}
	}
	pos, ok := h.engine.Position(recipient, h.token)
	if !ok {
		t.Fatal("position not recorded")
	}
	// Identical repeated calls overwrite the position rather than summing.
	if pos.AmountToken.Cmp(big.NewInt(500)) != 0 || pos.AmountNative.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("position %s/%s after repeat, want 500/5", pos.AmountToken, pos.AmountNative)
	}
}

func TestEndToEndQuoteRoundTrip(t *testing.T) {
	h := newHarness(t)

	quoted, err := h.zap.Quote(big.NewInt(5), h.path())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	res, err := h.zap.SwapAndProvisionLiquidity(h.caller, big.NewInt(5), big.NewInt(5), h.path(), addr(0x99), routerTestNow+300)
	if err != nil {
		t.Fatalf("zap: %v", err)
	}
	if quoted[len(quoted)-1].Cmp(res.TokensReceived) != 0 {
		t.Fatalf("quote %s != realized %s", quoted[len(quoted)-1], res.TokensReceived)
	}
}

func TestEndToEndDegenerateBranchPaysCaller(t *testing.T) {
	h := newHarness(t)

	res, err := h.zap.SwapAndProvisionLiquidity(h.caller, big.NewInt(5), big.NewInt(5), h.path(), addr(0x99), routerTestNow+300)
	if err != nil {
		t.Fatalf("zap: %v", err)
	}
	if !res.SwapOnly {
		t.Fatal("expected swap-only outcome")
	}
	callerBalance, _ := h.ledger.BalanceOf(h.token, h.caller)
	if callerBalance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("caller balance = %s, want 500", callerBalance)
	}
	if _, ok := h.engine.Position(addr(0x99), h.token); ok {
		t.Fatal("degenerate branch must not record a position")
	}
}

func TestEndToEndInvalidPathLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	badPath := [][20]byte{h.token, h.wrapped}

	_, err := h.zap.PurchaseWithNative(h.caller, big.NewInt(5), badPath, big.NewInt(0), addr(0x99), routerTestNow+300)
	if !errors.Is(err, zap.ErrInvalidPath) {
		t.Fatalf("got %v, want ErrInvalidPath", err)
	}
	for _, account := range [][20]byte{h.caller, h.self, addr(0x99)} {
		balance, _ := h.ledger.BalanceOf(h.token, account)
		if balance.Sign() != 0 {
			t.Fatalf("balance of %x changed to %s", account, balance)
		}
	}
}

func TestEndToEndCustodyProvisioning(t *testing.T) {
	h := newHarness(t)
	recipient := addr(0x99)

	// Seed the caller and let the engine pull a deposit of 100.
	h.ledger.Mint(h.token, h.caller, big.NewInt(100))
	if _, err := h.ledger.Approve(h.token, h.caller, h.self, big.NewInt(100)); err != nil {
		t.Fatalf("approve engine: %v", err)
	}
	if err := h.zap.Deposit(h.caller, h.token, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := h.zap.ProvisionLiquidityNative(h.caller, big.NewInt(1), h.token, big.NewInt(100), big.NewInt(0), big.NewInt(0), recipient, routerTestNow+300)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	// Scenario: deposit 100, provision with 1 native, shares truncate to 50.
	if res.SharesMinted.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("shares = %s, want 50", res.SharesMinted)
	}
	pos, ok := h.engine.Position(recipient, h.token)
	if !ok || pos.SharesMinted.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("recorded position mismatch: %+v ok=%v", pos, ok)
	}
	if got := h.zap.CustodyBalance(h.token); got.Sign() != 0 {
		t.Fatalf("custody = %s, want 0", got)
	}
}
