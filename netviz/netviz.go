// Package netviz renders a net's topology — and optionally a
// marking snapshot — as a Graphviz graph.
package netviz

import (
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/jt05610/petriengine/net"
)

// Font names a node label font, following the teacher's comma-chained
// fallback convention (w.Font.Or(graphviz.SansSerif)).
type Font string

func (f Font) Or(other Font) Font {
	return f + "," + other
}

const (
	Helvetica Font = "Helvetica"
	SansSerif Font = "sans-serif"
)

// RankDir is the layout direction passed to cgraph.
type RankDir string

const (
	LeftToRight RankDir = "LR"
	TopToBottom RankDir = "TB"
)

// Config controls a Writer's rendering.
type Config struct {
	Name string
	Font
	RankDir
}

// Writer renders a *net.Net to Graphviz's XDOT format.
type Writer struct {
	*Config
	g       *cgraph.Graph
	mapping map[interface{}]*cgraph.Node
}

// New builds a Writer. A zero-value Name defaults to "petri".
func New(config *Config) *Writer {
	if config.Name == "" {
		config.Name = "petri"
	}
	return &Writer{
		Config:  config,
		mapping: make(map[interface{}]*cgraph.Node),
	}
}

func (w *Writer) writePlace(p *net.Place, count int, haveMarking bool) error {
	name := fmt.Sprintf("p%d", p.ID)
	node, err := w.g.CreateNode(name)
	if err != nil {
		return err
	}
	node.SetShape(cgraph.CircleShape)
	label := p.Label
	if haveMarking {
		label = fmt.Sprintf("%s [%d]", p.Label, count)
	}
	node.SetLabel(label)
	node.Set("fontname", string(w.Font))
	w.mapping[placeKey(p.ID)] = node
	return nil
}

func (w *Writer) writeTransition(t *net.Transition) error {
	name := fmt.Sprintf("t%d", t.ID)
	node, err := w.g.CreateNode(name)
	if err != nil {
		return err
	}
	node.SetShape(cgraph.BoxShape)
	label := t.Label
	if t.Automated {
		label += " (auto)"
	}
	node.SetLabel(label)
	node.Set("fontname", string(w.Font))
	w.mapping[transitionKey(t.ID)] = node
	return nil
}

func (w *Writer) writeArc(i int, a *net.Arc) error {
	place := w.mapping[placeKey(a.Place)]
	trans := w.mapping[transitionKey(a.Transition)]
	src, dst := place, trans
	if a.Direction == net.Out {
		src, dst = trans, place
	}
	name := fmt.Sprintf("a%d", i)
	edge, err := w.g.CreateEdge(name, src, dst)
	if err != nil {
		return err
	}
	if a.Weight != 1 {
		edge.SetLabel(fmt.Sprintf("%d", a.Weight))
	}
	return nil
}

type placeKey net.PlaceID
type transitionKey net.TransitionID

// Flush writes n's topology as an XDOT graph to out. If marking is
// non-nil, each place's label is annotated with its current token
// count.
func Flush(out io.Writer, w *Writer, n *net.Net, marking map[net.PlaceID]int) error {
	gv := graphviz.New()
	defer func() { _ = gv.Close() }()

	g, err := gv.Graph()
	if err != nil {
		return err
	}
	g.SetRankDir(cgraph.RankDir(w.RankDir))
	w.g = g

	haveMarking := marking != nil
	for _, p := range n.Places() {
		if err := w.writePlace(p, marking[p.ID], haveMarking); err != nil {
			return err
		}
	}
	for _, t := range n.Transitions() {
		if err := w.writeTransition(t); err != nil {
			return err
		}
	}
	for i, a := range n.Arcs() {
		if err := w.writeArc(i, a); err != nil {
			return err
		}
	}
	return gv.Render(w.g, graphviz.XDOT, out)
}
