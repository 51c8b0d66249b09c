package token_test

import (
	"testing"

	"github.com/jt05610/petriengine/token"
)

var sig = token.Schema{ID: 1, Name: "signal"}

func tok(v int) token.Token {
	return token.New(sig, v)
}

func TestConsumeProduceInverse(t *testing.T) {
	m := token.FromMap(map[token.PlaceID][]token.Token{1: {tok(1), tok(2)}})
	x := map[token.PlaceID][]token.Token{2: {tok(3)}}

	produced := m.Produce(x)
	back, err := produced.Consume(x)
	if err != nil {
		t.Fatalf("consume after produce: %v", err)
	}
	if !sameMultiplicity(back.Multiplicity(), m.Multiplicity()) {
		t.Errorf("consume(produce(m, x), x) != m: got %v want %v", back.Multiplicity(), m.Multiplicity())
	}
}

func TestProduceConsumeInverse(t *testing.T) {
	m := token.FromMap(map[token.PlaceID][]token.Token{1: {tok(1), tok(2)}})
	x := map[token.PlaceID][]token.Token{1: {tok(1)}}
	if !m.IsSub(x) {
		t.Fatal("expected x to be a subset of m")
	}
	consumed, err := m.Consume(x)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	back := consumed.Produce(x)
	if !sameMultiplicity(back.Multiplicity(), m.Multiplicity()) {
		t.Errorf("produce(consume(m, x), x) != m: got %v want %v", back.Multiplicity(), m.Multiplicity())
	}
}

func TestConsumePreconditionViolated(t *testing.T) {
	m := token.FromMap(map[token.PlaceID][]token.Token{1: {tok(1)}})
	_, err := m.Consume(map[token.PlaceID][]token.Token{1: {tok(99)}})
	if err != token.ErrNotSubset {
		t.Errorf("expected ErrNotSubset, got %v", err)
	}
}

func TestEmptyPlacesAreAbsentKeys(t *testing.T) {
	m := token.FromMap(map[token.PlaceID][]token.Token{1: {tok(1)}})
	consumed, err := m.Consume(map[token.PlaceID][]token.Token{1: {tok(1)}})
	if err != nil {
		t.Fatal(err)
	}
	mult := consumed.Multiplicity()
	if _, ok := mult[1]; ok {
		t.Errorf("expected place 1 to be absent after emptying, got %v", mult)
	}
}

func TestCountMarkingAlgebra(t *testing.T) {
	m := token.CountMarking{1: 2}
	x := map[token.PlaceID][]token.Token{1: {tok(0)}}
	consumed, err := m.Consume(x)
	if err != nil {
		t.Fatal(err)
	}
	if consumed.Multiplicity()[1] != 1 {
		t.Errorf("expected 1 remaining token, got %d", consumed.Multiplicity()[1])
	}
	back := consumed.Produce(x)
	if back.Multiplicity()[1] != 2 {
		t.Errorf("expected 2 tokens after produce, got %d", back.Multiplicity()[1])
	}
}

func sameMultiplicity(a, b map[token.PlaceID]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
