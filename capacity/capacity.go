package capacity

import (
	"fmt"
	"sort"

	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

// Adapts a plain function to graph.CapacityPolicy.
type Func func(sweep uint32, rawId graph.RawType) uint32

func (f Func) Capacity(sweep uint32, rawId graph.RawType) uint32 {
	return f(sweep, rawId)
}

// Every vertex gets the sweep value as its capacity.
func Linear() graph.CapacityPolicy {
	return Func(func(sweep uint32, _ graph.RawType) uint32 {
		return sweep
	})
}

// Like Linear, but never above max.
func Clamped(max uint32) graph.CapacityPolicy {
	return Func(func(sweep uint32, _ graph.RawType) uint32 {
		return utils.Min(sweep, max)
	})
}

// (rawId + sweep) mod m; varies capacity between vertices. m of zero is treated as one.
func Modulo(m uint32) graph.CapacityPolicy {
	m = utils.Max(m, 1)
	return Func(func(sweep uint32, rawId graph.RawType) uint32 {
		return uint32((uint64(rawId.Integer()) + uint64(sweep)) % uint64(m))
	})
}

var registry = map[string]func(param uint32) graph.CapacityPolicy{
	"linear": func(uint32) graph.CapacityPolicy { return Linear() },
	"clamp":  Clamped,
	"mod":    Modulo,
}

// Names of the known policies, sorted.
func Names() (names []string) {
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Finds a policy by name, configured with param.
func Lookup(name string, param uint32) (graph.CapacityPolicy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown capacity policy %q, expected one of %v", name, Names())
	}
	return ctor(param), nil
}
