package amm

import (
	"bytes"
	"errors"
	"testing"
)

func addr(fill byte) [20]byte {
	var out [20]byte
	copy(out[:], bytes.Repeat([]byte{fill}, 20))
	return out
}

func TestCreatePairRejectsInvalidPairs(t *testing.T) {
	factory := NewFactory(addr(0xF0))
	if _, err := factory.CreatePair(addr(0x01), addr(0x01)); !errors.Is(err, ErrIdenticalAddresses) {
		t.Fatalf("identical: got %v", err)
	}
	if _, err := factory.CreatePair([20]byte{}, addr(0x01)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero first: got %v", err)
	}
	if _, err := factory.CreatePair(addr(0x01), [20]byte{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero second: got %v", err)
	}
}

func TestCreatePairIsSymmetric(t *testing.T) {
	factory := NewFactory(addr(0xF0))
	a, b := addr(0x01), addr(0x02)
	pair, err := factory.CreatePair(a, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pair == ([20]byte{}) {
		t.Fatal("pair address must be non-zero")
	}
	if got := factory.GetPair(b, a); got != pair {
		t.Fatal("registry must be symmetric")
	}
	// Creating the same pair again returns the recorded address.
	again, err := factory.CreatePair(b, a)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if again != pair {
		t.Fatal("recreation must return the recorded address")
	}
}

func TestGetPairFallsBackToDeterministicAddress(t *testing.T) {
	factory := NewFactory(addr(0xF0))
	a, b := addr(0x0A), addr(0x0B)
	computed := factory.GetPair(a, b)
	if computed == ([20]byte{}) {
		t.Fatal("fallback address must be non-zero")
	}
	registered, err := factory.CreatePair(a, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if registered != computed {
		t.Fatal("explicit registration must match the deterministic fallback")
	}
	if PairAddress(a, b) != PairAddress(b, a) {
		t.Fatal("pair address must not depend on argument order")
	}
}

func TestGetPairInvalidInputs(t *testing.T) {
	factory := NewFactory(addr(0xF0))
	if got := factory.GetPair(addr(0x01), addr(0x01)); got != ([20]byte{}) {
		t.Fatal("identical tokens must map to the zero address")
	}
	if got := factory.GetPair([20]byte{}, addr(0x01)); got != ([20]byte{}) {
		t.Fatal("zero token must map to the zero address")
	}
}
