package netviz_test

import (
	"bytes"
	"testing"

	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/netviz"
)

func chainNet(t *testing.T) *net.Net {
	n, err := net.New(
		[]*net.Place{{ID: 1, Label: "ready"}, {ID: 2, Label: "done"}},
		[]*net.Transition{{ID: 1, Label: "process", Automated: true}},
		[]*net.Arc{
			{Place: 1, Transition: 1, Direction: net.In, Weight: 1},
			{Place: 2, Transition: 1, Direction: net.Out, Weight: 2},
		},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func TestFlushWritesXDOT(t *testing.T) {
	n := chainNet(t)
	w := netviz.New(&netviz.Config{Font: netviz.Helvetica, RankDir: netviz.LeftToRight})

	var buf bytes.Buffer
	if err := netviz.Flush(&buf, w, n, nil); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.Len() == 0 {
		t.Errorf("Flush wrote no output")
	}
}

func TestFlushAnnotatesMarking(t *testing.T) {
	n := chainNet(t)
	w := netviz.New(&netviz.Config{Font: netviz.Helvetica})

	var buf bytes.Buffer
	marking := map[net.PlaceID]int{1: 3}
	if err := netviz.Flush(&buf, w, n, marking); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.Len() == 0 {
		t.Errorf("Flush wrote no output")
	}
}
