package zap

import (
	"encoding/hex"
	"math/big"
)

// SwapResult captures the outcome of the swap leg of a flow.
type SwapResult struct {
	TokenOut  [20]byte
	AmountIn  *big.Int
	AmountOut *big.Int
}

// LiquidityResult captures the outcome of a liquidity provisioning call.
type LiquidityResult struct {
	TokenUsed    *big.Int
	NativeUsed   *big.Int
	SharesMinted *big.Int
}

// PurchaseResult is returned by PurchaseWithNative.
type PurchaseResult struct {
	TokenOut     [20]byte
	AmountIn     *big.Int
	AmountOutMin *big.Int
	AmountOut    *big.Int
}

// ZapResult is returned by SwapAndProvisionLiquidity. SwapOnly marks the
// degenerate branch where the entire attached amount was consumed by the
// swap leg and no liquidity was provisioned.
type ZapResult struct {
	Token          [20]byte
	NativeForSwap  *big.Int
	TokensReceived *big.Int
	TokensUsed     *big.Int
	NativeUsed     *big.Int
	SharesMinted   *big.Int
	TokensRefunded *big.Int
	SwapOnly       bool
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
