package zap

import (
	"fmt"
	"math/big"
)

// Deposit pulls the supplied token amount from the caller into custody. The
// caller must have granted the engine an allowance covering the amount.
func (e *Engine) Deposit(caller, token [20]byte, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if isZeroAddress(token) {
		return ErrInvalidToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	ok, err := e.tokens.TransferFrom(token, e.self, caller, e.self, cloneBigInt(amount))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return ErrTransferFailed
	}
	e.custodyCredit(token, amount)
	e.emit(NewCustodyDepositedEvent(caller, token, amount, e.custodyBalance(token)))
	return nil
}

// Withdraw releases custody tokens to the supplied recipient. Only the
// custody owner may withdraw.
func (e *Engine) Withdraw(caller, token [20]byte, amount *big.Int, to [20]byte) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if caller != e.owner {
		return ErrUnauthorized
	}
	if isZeroAddress(token) {
		return ErrInvalidToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if isZeroAddress(to) {
		return ErrInvalidRecipient
	}
	if e.custodyBalance(token).Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	if err := e.payOut(token, to, amount); err != nil {
		return err
	}
	if err := e.custodyDebit(token, amount); err != nil {
		return err
	}
	e.emit(NewCustodyWithdrawnEvent(caller, token, to, amount, e.custodyBalance(token)))
	return nil
}

// CustodyBalance returns the custody balance recorded for the token.
func (e *Engine) CustodyBalance(token [20]byte) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBigInt(e.custody[token])
}

func (e *Engine) custodyBalance(token [20]byte) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBigInt(e.custody[token])
}

func (e *Engine) custodyCredit(token [20]byte, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	balance := e.custody[token]
	if balance == nil {
		balance = big.NewInt(0)
	}
	e.custody[token] = new(big.Int).Add(balance, amount)
}

func (e *Engine) custodyDebit(token [20]byte, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	balance := e.custody[token]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	e.custody[token] = new(big.Int).Sub(balance, amount)
	return nil
}
