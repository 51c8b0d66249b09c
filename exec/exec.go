// Package exec invokes a transition's user function with its selected
// input tokens, routes the result into output tokens, and isolates
// failures so no partial marking mutation ever escapes.
package exec

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// Result is the outcome of a successful firing.
type Result struct {
	Consume map[net.PlaceID][]token.Token
	Produce map[net.PlaceID][]token.Token
	Event   interface{}
	JobID   string
}

// Failed wraps the error message captured from a user function failure.
// The executor never returns the raw error value across a suspension
// boundary uninspected — it is always reduced to a message string, the
// shape journaled in TransitionFailed.
type Failed struct {
	Message string
}

func (f *Failed) Error() string { return f.Message }

// Fire assembles the structured input for t from consumeMarking using
// the input arcs' field selectors, invokes t.Fire, and routes the
// output back into a produce marking using the output arcs' selectors.
// If t.Fire panics or returns an error, Fire returns a *Failed instead
// of propagating it — no partial marking mutation ever escapes.
func Fire(ctx context.Context, n *net.Net, t *net.Transition, consumeMarking map[net.PlaceID][]token.Token, payload interface{}, jobID string) (*Result, error) {
	if ok, err := checkGuard(t, n, consumeMarking); err != nil {
		return nil, err
	} else if !ok {
		return nil, &Failed{Message: "guard expression rejected input"}
	}

	input := make(map[string][]token.Token)
	for _, a := range n.InputArcs(t.ID) {
		input[a.Selector] = append(input[a.Selector], consumeMarking[a.Place]...)
	}

	output, event, err := invoke(ctx, t, input, payload)
	if err != nil {
		return nil, err
	}

	produce := make(map[net.PlaceID][]token.Token)
	for _, a := range n.OutputArcs(t.ID) {
		produce[a.Place] = append(produce[a.Place], output[a.Selector]...)
	}

	return &Result{
		Consume: consumeMarking,
		Produce: produce,
		Event:   event,
		JobID:   jobID,
	}, nil
}

// invoke calls t.Fire, converting a panic into a *Failed error so a
// misbehaving user function can never crash the instance mailbox.
func invoke(ctx context.Context, t *net.Transition, input map[string][]token.Token, payload interface{}) (output map[string][]token.Token, event interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Failed{Message: fmt.Sprintf("%v", r)}
		}
	}()
	if t.Fire == nil {
		return nil, nil, &Failed{Message: "transition has no handler"}
	}
	output, event, ferr := t.Fire(ctx, input, payload)
	if ferr != nil {
		return nil, nil, &Failed{Message: ferr.Error()}
	}
	return output, event, nil
}

// checkGuard evaluates t.Guard (if any) against the selected input
// tokens' values, keyed by selector. An empty guard always passes.
func checkGuard(t *net.Transition, n *net.Net, consumeMarking map[net.PlaceID][]token.Token) (bool, error) {
	if t.Guard == "" {
		return true, nil
	}
	env := make(map[string]interface{})
	for _, a := range n.InputArcs(t.ID) {
		tokens := consumeMarking[a.Place]
		if len(tokens) == 1 {
			env[a.Selector] = tokens[0].Value
		} else {
			values := make([]interface{}, len(tokens))
			for i, tk := range tokens {
				values[i] = tk.Value
			}
			env[a.Selector] = values
		}
	}
	program, err := expr.Compile(t.Guard, expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("exec: compiling guard for transition %d: %w", t.ID, err)
	}
	ret, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("exec: evaluating guard for transition %d: %w", t.ID, err)
	}
	ok, _ := ret.(bool)
	return ok, nil
}
