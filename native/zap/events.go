package zap

import (
	"math/big"

	"poolzap/core/types"
)

const (
	// EventTypePurchaseCompleted is emitted when a standalone purchase swap
	// settles.
	EventTypePurchaseCompleted = "zap.purchase_completed"
	// EventTypeLiquidityAdded is emitted when a standalone liquidity
	// provisioning call settles.
	EventTypeLiquidityAdded = "zap.liquidity_added"
	// EventTypeZapCompleted is emitted when the composite swap-then-liquidity
	// flow settles.
	EventTypeZapCompleted = "zap.swap_liquidity_completed"
	// EventTypeSwapOnlyCompleted is emitted for the degenerate branch where
	// no native remained for liquidity provisioning.
	EventTypeSwapOnlyCompleted = "zap.swap_only_completed"
	// EventTypeSwapFailed is emitted when the swap leg of any flow fails.
	EventTypeSwapFailed = "zap.swap_failed"
	// EventTypeLiquidityFailed is emitted when a liquidity leg fails.
	EventTypeLiquidityFailed = "zap.liquidity_failed"
	// EventTypeCustodyDeposited is emitted when tokens enter custody.
	EventTypeCustodyDeposited = "zap.custody_deposited"
	// EventTypeCustodyWithdrawn is emitted when the owner releases custody
	// tokens.
	EventTypeCustodyWithdrawn = "zap.custody_withdrawn"
)

type zapEvent struct {
	evt *types.Event
}

func (e zapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e zapEvent) Event() *types.Event { return e.evt }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewPurchaseCompletedEvent returns the canonical payload for a settled
// purchase swap.
func NewPurchaseCompletedEvent(buyer [20]byte, res *PurchaseResult) *types.Event {
	attrs := make(map[string]string)
	if res != nil {
		attrs["buyer"] = formatAddress(buyer)
		attrs["token"] = formatAddress(res.TokenOut)
		attrs["amountIn"] = amountString(res.AmountIn)
		attrs["amountOutMin"] = amountString(res.AmountOutMin)
		attrs["amountOut"] = amountString(res.AmountOut)
	}
	return &types.Event{Type: EventTypePurchaseCompleted, Attributes: attrs}
}

// NewLiquidityAddedEvent returns the canonical payload for a settled
// liquidity provisioning call.
func NewLiquidityAddedEvent(caller, token, recipient [20]byte, res *LiquidityResult) *types.Event {
	attrs := make(map[string]string)
	if res != nil {
		attrs["caller"] = formatAddress(caller)
		attrs["token"] = formatAddress(token)
		attrs["recipient"] = formatAddress(recipient)
		attrs["tokenUsed"] = amountString(res.TokenUsed)
		attrs["nativeUsed"] = amountString(res.NativeUsed)
		attrs["sharesMinted"] = amountString(res.SharesMinted)
	}
	return &types.Event{Type: EventTypeLiquidityAdded, Attributes: attrs}
}

// NewZapCompletedEvent returns the canonical payload for a settled composite
// flow.
func NewZapCompletedEvent(initiator [20]byte, res *ZapResult) *types.Event {
	attrs := make(map[string]string)
	if res != nil {
		attrs["initiator"] = formatAddress(initiator)
		attrs["token"] = formatAddress(res.Token)
		attrs["nativeForSwap"] = amountString(res.NativeForSwap)
		attrs["tokensReceived"] = amountString(res.TokensReceived)
		attrs["nativeUsed"] = amountString(res.NativeUsed)
		attrs["sharesMinted"] = amountString(res.SharesMinted)
		attrs["tokensRefunded"] = amountString(res.TokensRefunded)
	}
	return &types.Event{Type: EventTypeZapCompleted, Attributes: attrs}
}

// NewSwapOnlyCompletedEvent returns the canonical payload for the degenerate
// branch where the whole attached amount was consumed by the swap leg.
func NewSwapOnlyCompletedEvent(initiator [20]byte, res *ZapResult) *types.Event {
	attrs := make(map[string]string)
	if res != nil {
		attrs["initiator"] = formatAddress(initiator)
		attrs["token"] = formatAddress(res.Token)
		attrs["nativeForSwap"] = amountString(res.NativeForSwap)
		attrs["tokensReceived"] = amountString(res.TokensReceived)
	}
	return &types.Event{Type: EventTypeSwapOnlyCompleted, Attributes: attrs}
}

// NewSwapFailedEvent returns the canonical payload for a failed swap leg.
func NewSwapFailedEvent(initiator, token [20]byte, amountIn *big.Int, cause error) *types.Event {
	attrs := map[string]string{
		"initiator": formatAddress(initiator),
		"token":     formatAddress(token),
		"amountIn":  amountString(amountIn),
	}
	if cause != nil {
		attrs["reason"] = cause.Error()
	}
	return &types.Event{Type: EventTypeSwapFailed, Attributes: attrs}
}

// NewLiquidityFailedEvent returns the canonical payload for a failed
// liquidity leg.
func NewLiquidityFailedEvent(initiator, token [20]byte, tokenDesired, native *big.Int, cause error) *types.Event {
	attrs := map[string]string{
		"initiator":    formatAddress(initiator),
		"token":        formatAddress(token),
		"tokenDesired": amountString(tokenDesired),
		"native":       amountString(native),
	}
	if cause != nil {
		attrs["reason"] = cause.Error()
	}
	return &types.Event{Type: EventTypeLiquidityFailed, Attributes: attrs}
}

// NewCustodyDepositedEvent returns the canonical payload for a custody
// deposit.
func NewCustodyDepositedEvent(depositor, token [20]byte, amount, balance *big.Int) *types.Event {
	return &types.Event{Type: EventTypeCustodyDeposited, Attributes: map[string]string{
		"depositor": formatAddress(depositor),
		"token":     formatAddress(token),
		"amount":    amountString(amount),
		"balance":   amountString(balance),
	}}
}

// NewCustodyWithdrawnEvent returns the canonical payload for an owner
// withdrawal from custody.
func NewCustodyWithdrawnEvent(owner, token, to [20]byte, amount, balance *big.Int) *types.Event {
	return &types.Event{Type: EventTypeCustodyWithdrawn, Attributes: map[string]string{
		"owner":   formatAddress(owner),
		"token":   formatAddress(token),
		"to":      formatAddress(to),
		"amount":  amountString(amount),
		"balance": amountString(balance),
	}}
}
