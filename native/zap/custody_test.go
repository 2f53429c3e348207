package zap

import (
	"errors"
	"math/big"
	"testing"
)

func TestDepositValidation(t *testing.T) {
	tokens := newMockTokens()
	engine, _ := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, [20]byte{}, big.NewInt(1)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("zero token: got %v", err)
	}
	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if err := engine.Deposit(callerAddr, tokenAddr, nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("nil amount: got %v", err)
	}
	if len(tokens.transferFroms) != 0 {
		t.Fatal("validation failures must not touch the token service")
	}
}

func TestDepositPullsFromCaller(t *testing.T) {
	tokens := newMockTokens()
	engine, emitter := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("custody = %s, want 100", got)
	}
	pull := tokens.transferFroms[0]
	if pull.from != callerAddr || pull.to != selfAddr {
		t.Fatalf("deposit must pull from the caller into the engine: %+v", pull)
	}
	requireEvent(t, emitter, EventTypeCustodyDeposited)

	// Deposits accumulate.
	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(23)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("custody = %s, want 123", got)
	}
}

func TestDepositTransferFailure(t *testing.T) {
	tokens := newMockTokens()
	tokens.transferFromOK = false
	engine, _ := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(5)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got %v, want ErrTransferFailed", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Sign() != 0 {
		t.Fatalf("failed deposit must not credit custody, got %s", got)
	}
}

func TestWithdrawOwnerOnly(t *testing.T) {
	tokens := newMockTokens()
	engine, _ := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(50)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.Withdraw(callerAddr, tokenAddr, big.NewInt(10), recipientAddr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner withdraw: got %v", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("rejected withdraw must not move custody, got %s", got)
	}
	if len(tokens.transfers) != 0 {
		t.Fatal("rejected withdraw must not transfer")
	}
}

func TestWithdrawValidation(t *testing.T) {
	engine, _ := newTestEngine(t, &mockRouter{}, newMockTokens())

	if err := engine.Withdraw(ownerAddr, [20]byte{}, big.NewInt(1), recipientAddr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("zero token: got %v", err)
	}
	if err := engine.Withdraw(ownerAddr, tokenAddr, big.NewInt(0), recipientAddr); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if err := engine.Withdraw(ownerAddr, tokenAddr, big.NewInt(1), [20]byte{}); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("zero recipient: got %v", err)
	}
	if err := engine.Withdraw(ownerAddr, tokenAddr, big.NewInt(1), recipientAddr); !errors.Is(err, ErrInsufficientCustody) {
		t.Fatalf("empty custody: got %v", err)
	}
}

func TestWithdrawReleasesCustody(t *testing.T) {
	tokens := newMockTokens()
	engine, emitter := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(50)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.Withdraw(ownerAddr, tokenAddr, big.NewInt(30), recipientAddr); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("custody = %s, want 20", got)
	}
	release := tokens.transfers[0]
	if release.from != selfAddr || release.to != recipientAddr || release.amount.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("release wiring: %+v", release)
	}
	requireEvent(t, emitter, EventTypeCustodyWithdrawn)
}

func TestWithdrawTransferFailure(t *testing.T) {
	tokens := newMockTokens()
	engine, _ := newTestEngine(t, &mockRouter{}, tokens)

	if err := engine.Deposit(callerAddr, tokenAddr, big.NewInt(50)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	tokens.transferOK = false
	if err := engine.Withdraw(ownerAddr, tokenAddr, big.NewInt(30), recipientAddr); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got %v, want ErrTransferFailed", err)
	}
	if got := engine.CustodyBalance(tokenAddr); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("failed withdraw must keep custody intact, got %s", got)
	}
}
