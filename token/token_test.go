package token_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jt05610/petriengine/token"
)

var volume = token.Schema{ID: 2, Name: "volume"}

func TestDecimalTokensCompareByValueNotRepresentation(t *testing.T) {
	a := token.NewDecimal(volume, decimal.RequireFromString("1.0"))
	b := token.NewDecimal(volume, decimal.RequireFromString("1.00"))
	if !a.Equal(b) {
		t.Errorf("expected %v and %v to be equal despite differing scale", a, b)
	}
}

func TestDecimalTokensDistinguishDifferentValues(t *testing.T) {
	a := token.NewDecimal(volume, decimal.RequireFromString("1.0"))
	b := token.NewDecimal(volume, decimal.RequireFromString("1.1"))
	if a.Equal(b) {
		t.Errorf("expected %v and %v to be unequal", a, b)
	}
}

func TestMarkingConsumesDecimalTokenByValue(t *testing.T) {
	m := token.FromMap(map[token.PlaceID][]token.Token{
		1: {token.NewDecimal(volume, decimal.RequireFromString("2.50"))},
	})
	sub := map[token.PlaceID][]token.Token{
		1: {token.NewDecimal(volume, decimal.RequireFromString("2.5"))},
	}
	if !m.IsSub(sub) {
		t.Fatal("expected differently-scaled equal decimal to be a subset")
	}
	consumed, err := m.Consume(sub)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if n := consumed.Multiplicity()[1]; n != 0 {
		t.Errorf("expected place 1 empty after consume, got %d tokens", n)
	}
}
