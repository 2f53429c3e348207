package amm

import (
	"bytes"
	"errors"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrIdenticalAddresses indicates a pair of two equal token addresses.
	ErrIdenticalAddresses = errors.New("amm: identical pair addresses")
	// ErrZeroAddress indicates a pair containing the zero address.
	ErrZeroAddress = errors.New("amm: zero address in pair")
)

// Factory is the pair registry of the simulation. Pair addresses derive
// deterministically from the ordered token pair, so lookups succeed even
// when no explicit registration happened.
type Factory struct {
	address [20]byte

	mu    sync.Mutex
	pairs map[[20]byte]map[[20]byte][20]byte
}

// NewFactory constructs a registry reachable at the supplied address.
func NewFactory(address [20]byte) *Factory {
	return &Factory{
		address: address,
		pairs:   make(map[[20]byte]map[[20]byte][20]byte),
	}
}

// Address returns the registry's own address.
func (f *Factory) Address() [20]byte { return f.address }

// PairAddress computes the deterministic address for the supplied pair: the
// keccak hash of the two token addresses in byte order, truncated to the
// trailing twenty bytes.
func PairAddress(a, b [20]byte) [20]byte {
	lo, hi := a, b
	if bytes.Compare(hi[:], lo[:]) < 0 {
		lo, hi = hi, lo
	}
	digest := ethcrypto.Keccak256(lo[:], hi[:])
	var pair [20]byte
	copy(pair[:], digest[12:])
	return pair
}

// CreatePair registers the deterministic pair address for the two tokens,
// symmetrically. Creating an existing pair returns the recorded address.
func (f *Factory) CreatePair(a, b [20]byte) ([20]byte, error) {
	if a == b {
		return [20]byte{}, ErrIdenticalAddresses
	}
	if a == ([20]byte{}) || b == ([20]byte{}) {
		return [20]byte{}, ErrZeroAddress
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.lookup(a, b); ok {
		return existing, nil
	}
	pair := PairAddress(a, b)
	f.store(a, b, pair)
	f.store(b, a, pair)
	return pair, nil
}

// GetPair returns the registered pair address, falling back to the
// deterministic computation when the pair was never created explicitly.
// Invalid pairs map to the zero address.
func (f *Factory) GetPair(a, b [20]byte) [20]byte {
	if a == b || a == ([20]byte{}) || b == ([20]byte{}) {
		return [20]byte{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.lookup(a, b); ok {
		return existing
	}
	return PairAddress(a, b)
}

func (f *Factory) lookup(a, b [20]byte) ([20]byte, bool) {
	inner := f.pairs[a]
	if inner == nil {
		return [20]byte{}, false
	}
	pair, ok := inner[b]
	return pair, ok
}

func (f *Factory) store(a, b, pair [20]byte) {
	inner := f.pairs[a]
	if inner == nil {
		inner = make(map[[20]byte][20]byte)
		f.pairs[a] = inner
	}
	inner[b] = pair
}
