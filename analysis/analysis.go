// Package analysis provides structural (uncolored, weight-only)
// analysis of a net's topology: its incidence matrix and coverability
// tree. It ignores token color, guards, and exception strategies — it
// answers questions about what markings are structurally reachable,
// not what a colored firing would actually produce.
package analysis

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/jt05610/petriengine/net"
)

// omega stands in for "unbounded" in a coverability tree, following
// the usual Karp-Miller convention of a sentinel larger than any
// marking this net can structurally reach.
const omega = 1 << 30

// State is a structural marking: token counts per place, in the order
// placeOrder assigns — the same order Incidence's columns use.
type State []int

func placeOrder(n *net.Net) []net.PlaceID {
	places := n.Places()
	order := make([]net.PlaceID, len(places))
	for i, p := range places {
		order[i] = p.ID
	}
	return order
}

func indexOf(order []net.PlaceID, id net.PlaceID) int {
	for i, p := range order {
		if p == id {
			return i
		}
	}
	return -1
}

// MarkingState projects a marking multiplicity into the State vector
// Incidence's columns are ordered by.
func MarkingState(n *net.Net, multiplicity map[net.PlaceID]int) State {
	places := placeOrder(n)
	s := make(State, len(places))
	for i, p := range places {
		s[i] = multiplicity[p]
	}
	return s
}

// Incidence returns the net's incidence matrix: one row per
// transition (in net.Transitions() order), one column per place (in
// net.Places() order). Entry [i][j] is transition i's weighted net
// effect on place j — output arc weight minus input arc weight.
func Incidence(n *net.Net) *mat.Dense {
	places := placeOrder(n)
	transitions := n.Transitions()
	m, t := len(places), len(transitions)
	d := make([]float64, t*m)
	for i, trans := range transitions {
		in := n.InMarking(trans.ID)
		out := n.OutMarking(trans.ID)
		for j, pid := range places {
			d[i*m+j] = float64(out[pid] - in[pid])
		}
	}
	return mat.NewDense(t, m, d)
}

// FiringVector is the unit row vector selecting transition t among
// net.Transitions().
func FiringVector(n *net.Net, t net.TransitionID) *mat.Dense {
	transitions := n.Transitions()
	v := make([]float64, len(transitions))
	for i, trans := range transitions {
		if trans.ID == t {
			v[i] = 1
		}
	}
	return mat.NewDense(1, len(transitions), v)
}

// NextState applies t's firing vector to state via the incidence
// matrix, returning ok=false if t is not structurally enabled (weight
// only — color and guards are not modeled here).
func NextState(n *net.Net, state State, t net.TransitionID) (State, bool) {
	trans, ok := n.Transition(t)
	if !ok {
		return nil, false
	}
	places := placeOrder(n)
	for pid, weight := range n.InMarking(trans.ID) {
		if state[indexOf(places, pid)] < weight {
			return nil, false
		}
	}

	f := FiringVector(n, t)
	var result mat.Dense
	result.Mul(f, Incidence(n))

	s := mat.NewDense(1, len(state), toFloats(state))
	var out mat.Dense
	out.Add(s, &result)

	next := make(State, len(state))
	for i := range next {
		next[i] = int(out.At(0, i))
	}
	return next, true
}

func toFloats(s State) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// Dominates reports whether s covers b: every component at least as
// large, and at least one strictly larger.
func (s State) Dominates(b State) bool {
	oneGt := false
	for i := range s {
		if s[i] < b[i] {
			return false
		}
		if s[i] > b[i] {
			oneGt = true
		}
	}
	return oneGt
}

// TreeNode is one node of a coverability tree.
type TreeNode struct {
	State    State
	Parent   *TreeNode
	Children []*TreeNode
}

func (t *TreeNode) widenAgainstAncestors() {
	for par := t.Parent; par != nil; par = par.Parent {
		if !t.State.Dominates(par.State) {
			continue
		}
		for i := range t.State {
			if t.State[i] > par.State[i] {
				t.State[i] = omega
			}
		}
	}
}

func serializeState(s State) string {
	out := make([]byte, 0, 4*len(s))
	for _, v := range s {
		if v >= omega {
			out = append(out, []byte("ω,")...)
			continue
		}
		out = append(out, []byte(strconv.Itoa(v))...)
		out = append(out, ',')
	}
	return string(out)
}

// Tree is a coverability tree rooted at an initial marking.
type Tree struct {
	Root *TreeNode
}

// CoverabilityTree builds the coverability tree from initial via the
// standard Karp-Miller construction: expand every enabled transition,
// widen a child that dominates an ancestor to ω in the dominating
// components, and stop expanding a state already seen.
func CoverabilityTree(n *net.Net, initial State) *Tree {
	seen := make(map[string]bool)
	root := &TreeNode{State: initial}
	buildTree(n, seen, root)
	return &Tree{Root: root}
}

func buildTree(n *net.Net, seen map[string]bool, node *TreeNode) {
	id := serializeState(node.State)
	if seen[id] {
		return
	}
	seen[id] = true
	for _, t := range n.Transitions() {
		next, ok := NextState(n, node.State, t.ID)
		if !ok {
			continue
		}
		child := &TreeNode{State: next, Parent: node}
		child.widenAgainstAncestors()
		node.Children = append(node.Children, child)
	}
	for _, child := range node.Children {
		buildTree(n, seen, child)
	}
}

// Reachable reports whether target appears anywhere in the tree.
func (t *Tree) Reachable(target State) bool {
	want := serializeState(target)
	var walk func(node *TreeNode) bool
	walk = func(node *TreeNode) bool {
		if serializeState(node.State) == want {
			return true
		}
		for _, c := range node.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(t.Root)
}
