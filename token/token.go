// Package token defines the colored token values that flow through a
// Petri net's places, and the schema tags that give a marking its color.
package token

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
)

// Schema tags the color of a token. Two tokens carry the same color iff
// their schemas are equal.
type Schema struct {
	ID   int
	Name string
}

func (s Schema) String() string { return s.Name }

// Token is a single colored value resident in a place.
type Token struct {
	Schema Schema
	Value  interface{}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%v)", t.Schema.Name, t.Value)
}

// Equal reports whether two tokens carry the same schema and an equal
// value. Consume uses this for value-equality removal per place.
func (t Token) Equal(other Token) bool {
	if t.Schema != other.Schema {
		return false
	}
	return deepEqual(t.Value, other.Value)
}

func deepEqual(a, b interface{}) bool {
	// decimal.Decimal compares unnormalized ("1.0" vs "1.00" has a
	// different exponent internally), so reflect.DeepEqual would reject
	// equal-valued tokens. Route through decimal's own Equal instead.
	if da, ok := a.(decimal.Decimal); ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}
	type eq interface{ Equal(interface{}) bool }
	if ea, ok := a.(eq); ok {
		return ea.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// New builds a token of the given schema.
func New(schema Schema, value interface{}) Token {
	return Token{Schema: schema, Value: value}
}

// NewDecimal builds a token carrying an exact-precision numeric value,
// for colors (e.g. volumes, concentrations) where float64 rounding
// would corrupt the marking algebra's equality checks.
func NewDecimal(schema Schema, value decimal.Decimal) Token {
	return Token{Schema: schema, Value: value}
}
