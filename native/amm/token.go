package amm

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrInsufficientBalance indicates a transfer exceeding the sender's
	// balance.
	ErrInsufficientBalance = errors.New("amm: insufficient token balance")
	// ErrInsufficientAllowance indicates a transferFrom exceeding the
	// spender's allowance.
	ErrInsufficientAllowance = errors.New("amm: insufficient allowance")
	// ErrZeroAmount indicates a zero or missing amount.
	ErrZeroAmount = errors.New("amm: amount must be positive")
)

// TokenLedger is a deterministic in-memory fungible token service. It holds
// balances and allowances for any number of token addresses and implements
// the transfer semantics the orchestrator consumes.
type TokenLedger struct {
	mu         sync.Mutex
	balances   map[[20]byte]map[[20]byte]*big.Int
	allowances map[[20]byte]map[[20]byte]map[[20]byte]*big.Int
}

// NewTokenLedger constructs an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		balances:   make(map[[20]byte]map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]map[[20]byte]map[[20]byte]*big.Int),
	}
}

// Mint credits freshly created tokens to the supplied account.
func (l *TokenLedger) Mint(token, to [20]byte, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, to, amount)
}

// BalanceOf returns the balance held by owner for the supplied token.
func (l *TokenLedger) BalanceOf(token, owner [20]byte) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.balance(token, owner)), nil
}

// Transfer moves tokens between accounts. Insufficient balances surface as
// a failure signal rather than silently truncating.
func (l *TokenLedger) Transfer(token, from, to [20]byte, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance(token, from).Cmp(amount) < 0 {
		return false, ErrInsufficientBalance
	}
	l.debit(token, from, amount)
	l.credit(token, to, amount)
	return true, nil
}

// TransferFrom moves tokens on behalf of the spender, debiting the
// allowance granted by the source account. A spender moving its own funds
// bypasses the allowance check.
func (l *TokenLedger) TransferFrom(token, spender, from, to [20]byte, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if spender != from {
		allowance := l.allowance(token, from, spender)
		if allowance.Cmp(amount) < 0 {
			return false, ErrInsufficientAllowance
		}
		l.setAllowance(token, from, spender, new(big.Int).Sub(allowance, amount))
	}
	if l.balance(token, from).Cmp(amount) < 0 {
		return false, ErrInsufficientBalance
	}
	l.debit(token, from, amount)
	l.credit(token, to, amount)
	return true, nil
}

// Approve grants the spender an allowance over the owner's tokens,
// overwriting any previous grant.
func (l *TokenLedger) Approve(token, owner, spender [20]byte, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() < 0 {
		return false, ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setAllowance(token, owner, spender, clone(amount))
	return true, nil
}

// Allowance returns the remaining allowance granted by owner to spender.
func (l *TokenLedger) Allowance(token, owner, spender [20]byte) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.allowance(token, owner, spender))
}

func (l *TokenLedger) balance(token, owner [20]byte) *big.Int {
	owners := l.balances[token]
	if owners == nil {
		return big.NewInt(0)
	}
	balance := owners[owner]
	if balance == nil {
		return big.NewInt(0)
	}
	return balance
}

func (l *TokenLedger) credit(token, owner [20]byte, amount *big.Int) {
	owners := l.balances[token]
	if owners == nil {
		owners = make(map[[20]byte]*big.Int)
		l.balances[token] = owners
	}
	owners[owner] = new(big.Int).Add(l.balance(token, owner), amount)
}

func (l *TokenLedger) debit(token, owner [20]byte, amount *big.Int) {
	l.balances[token][owner] = new(big.Int).Sub(l.balance(token, owner), amount)
}

func (l *TokenLedger) allowance(token, owner, spender [20]byte) *big.Int {
	owners := l.allowances[token]
	if owners == nil {
		return big.NewInt(0)
	}
	spenders := owners[owner]
	if spenders == nil {
		return big.NewInt(0)
	}
	allowance := spenders[spender]
	if allowance == nil {
		return big.NewInt(0)
	}
	return allowance
}

func (l *TokenLedger) setAllowance(token, owner, spender [20]byte, amount *big.Int) {
	owners := l.allowances[token]
	if owners == nil {
		owners = make(map[[20]byte]map[[20]byte]*big.Int)
		l.allowances[token] = owners
	}
	spenders := owners[owner]
	if spenders == nil {
		spenders = make(map[[20]byte]*big.Int)
		owners[owner] = spenders
	}
	spenders[spender] = amount
}

func clone(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
