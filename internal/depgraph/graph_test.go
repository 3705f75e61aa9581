package depgraph

import (
	"sync"
	"testing"
)

func TestDependCollapsesRepeats(t *testing.T) {
	g := New()
	g.Depend("A", "B")
	g.Depend("A", "B")
	g.Depend("A", "A") // self-edges не записываются
	g.Depend("", "B")
	g.Depend("A", "")

	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}
	edges := g.Edges()
	if len(edges) != 1 || edges[0] != (Edge{From: "A", To: "B"}) {
		t.Fatalf("edges = %v", edges)
	}
}

func TestEdgesSorted(t *testing.T) {
	g := New()
	g.Depend("B", "Z")
	g.Depend("A", "Z")
	g.Depend("A", "C")

	edges := g.Edges()
	want := []Edge{{"A", "C"}, {"A", "Z"}, {"B", "Z"}}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v", edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Fatalf("edges[%d] = %v, want %v", i, edges[i], want[i])
		}
	}
}

func TestReverseIndex(t *testing.T) {
	g := New()
	g.Depend("Fan", "Sink")
	g.Depend("Fab", "Sink")
	g.Depend("Fan", "Box")

	deps := g.DependenciesOf("Fan")
	if len(deps) != 2 || deps[0] != "Box" || deps[1] != "Sink" {
		t.Fatalf("DependenciesOf = %v", deps)
	}
	back := g.Dependents("Sink")
	if len(back) != 2 || back[0] != "Fab" || back[1] != "Fan" {
		t.Fatalf("Dependents = %v", back)
	}
	if g.Dependents("Fan") != nil {
		t.Fatalf("nothing depends on Fan")
	}
}

func TestConcurrentWriters(t *testing.T) {
	g := New()
	names := []string{"A", "B", "C", "D"}
	var wg sync.WaitGroup
	for _, from := range names {
		wg.Add(1)
		go func(from string) {
			defer wg.Done()
			for _, to := range names {
				for i := 0; i < 50; i++ {
					g.Depend(from, to)
				}
			}
		}(from)
	}
	wg.Wait()

	// 4 источника × 3 цели без петель
	if g.Len() != 12 {
		t.Fatalf("Len = %d, want 12", g.Len())
	}
}
