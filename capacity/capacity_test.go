package capacity

import (
	"testing"

	"github.com/ScottSallinen/bmatch/graph"
)

func Test_Policies(t *testing.T) {
	lin := Linear()
	for sweep := uint32(0); sweep < 5; sweep++ {
		if c := lin.Capacity(sweep, 77); c != sweep {
			t.Error("linear: sweep ", sweep, " got ", c)
		}
	}

	clamp := Clamped(1)
	expected := []uint32{0, 1, 1, 1}
	for sweep, want := range expected {
		if c := clamp.Capacity(uint32(sweep), 3); c != want {
			t.Error("clamp: sweep ", sweep, " got ", c, " want ", want)
		}
	}

	mod := Modulo(3)
	if c := mod.Capacity(2, graph.RawType(5)); c != 1 {
		t.Error("mod: got ", c)
	}
	if c := Modulo(0).Capacity(9, 9); c != 0 {
		t.Error("mod zero: got ", c)
	}
}

func Test_Lookup(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name, 2)
		if err != nil || p == nil {
			t.Fatal("lookup of ", name, " failed: ", err)
		}
	}
	p, _ := Lookup("clamp", 2)
	if c := p.Capacity(10, 0); c != 2 {
		t.Error("clamp via lookup: got ", c)
	}
	if _, err := Lookup("nope", 0); err == nil {
		t.Error("expected error for unknown policy")
	}
}
