package graph

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_ReadEdges(t *testing.T) {
	input := "# comment\n1 2 10\n\n  2\t3   4\r\n3 1\n"
	g := NewGraph()
	if err := ReadEdges(strings.NewReader(input), g); err != nil {
		t.Fatal(err)
	}
	if g.NumEdges() != 3 || g.NumVertices() != 3 {
		t.Fatal("edges ", g.NumEdges(), " vertices ", g.NumVertices())
	}
	last := g.Vertices[g.VertexMap[3]].OutEdges
	if last[len(last)-1].Weight != DEFAULT_WEIGHT {
		t.Error("two field line should use the default weight, got ", last[len(last)-1].Weight)
	}
}

func Test_ReadEdgesMalformed(t *testing.T) {
	for _, input := range []string{"1 2 3\n1 x 3\n", "1\n", "1 2 3 4\n", "1 2 -3\n", "1 99999999999 1\n"} {
		err := ReadEdges(strings.NewReader(input), NewGraph())
		if !errors.Is(err, ErrMalformedEdge) {
			t.Error("input ", input, ": expected malformed edge, got ", err)
		}
	}
	err := ReadEdges(strings.NewReader("1 2\n3 y\n"), NewGraph())
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Error("error should name the line: ", err)
	}
}

func Test_LoadGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.txt")
	if err := os.WriteFile(path, []byte("5 6 2\n6 7 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGraph(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.NumEdges() != 2 {
		t.Error("edges ", g.NumEdges())
	}
	if _, err := LoadGraph(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
