package cmd

import (
	"context"
	"fmt"

	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// orderSchema colors tokens flowing through sampleNet: an order
// identifier.
var orderSchema = token.Schema{ID: 1, Name: "order"}

// sampleNet is the three-place, two-transition net the run, viz and
// analyze commands operate on: an order is received, charged
// (automatically, with a retry-then-fatal strategy on failure), and
// shipped.
func sampleNet() *net.Net {
	places := []*net.Place{
		{ID: 1, Label: "received", Color: orderSchema},
		{ID: 2, Label: "charged", Color: orderSchema},
		{ID: 3, Label: "shipped", Color: orderSchema},
	}
	transitions := []*net.Transition{
		{
			ID:        1,
			Label:     "charge",
			Automated: true,
			Strategy: func(err error, attempt int) net.Decision {
				if attempt < 3 {
					return net.Decision{Kind: net.RetryWithDelay, DelayMillis: 100 * int64(attempt)}
				}
				return net.Decision{Kind: net.Fatal}
			},
			Fire: func(_ context.Context, input map[string][]token.Token, _ interface{}) (map[string][]token.Token, interface{}, error) {
				return map[string][]token.Token{"order": input["order"]}, fmt.Sprintf("charged %v", input["order"]), nil
			},
		},
		{
			ID:        2,
			Label:     "ship",
			Automated: true,
			Fire: func(_ context.Context, input map[string][]token.Token, _ interface{}) (map[string][]token.Token, interface{}, error) {
				return map[string][]token.Token{"order": input["order"]}, "shipped", nil
			},
		},
	}
	arcs := []*net.Arc{
		{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "order"},
		{Place: 2, Transition: 1, Direction: net.Out, Weight: 1, Selector: "order"},
		{Place: 2, Transition: 2, Direction: net.In, Weight: 1, Selector: "order"},
		{Place: 3, Transition: 2, Direction: net.Out, Weight: 1, Selector: "order"},
	}
	n, err := net.New(places, transitions, arcs)
	if err != nil {
		panic(err)
	}
	return n
}
