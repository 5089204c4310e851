package graph

import (
	"strconv"
	"sync/atomic"

	"github.com/ScottSallinen/bmatch/utils"
)

const DEFAULT_WEIGHT = 1

// Raw (external) ID of a vertex. Constant across executions, unlike the dense internal index.
type RawType uint32

func (r RawType) String() string {
	return strconv.FormatUint(uint64(r), 10)
}

func (r RawType) Integer() uint32 {
	return uint32(r)
}

// One directed record of an undirected edge. Each endpoint holds one, sharing Eid and Weight.
type Edge struct {
	Didx   uint32  // Internal index of the neighbour.
	Weight uint32  // Non-negative edge weight.
	Eid    uint32  // Index of the shared EdgeState.
	DstRaw RawType // Raw ID of the neighbour; cached for ordering.
}

func (e Edge) String() string {
	return "{Didx: " + utils.V(e.Didx) + ", Raw: " + e.DstRaw.String() + ", Weight: " + utils.V(e.Weight) + ", Eid: " + utils.V(e.Eid) + "}"
}

// Better reports whether e precedes o in proposal order: heavier first, then larger neighbour raw ID.
func (e *Edge) Better(o *Edge) bool {
	if e.Weight == o.Weight {
		return e.DstRaw > o.DstRaw
	}
	return e.Weight > o.Weight
}

// Decides when a flip of an endpoint bit changes whether an edge counts towards the total.
type CreditMode uint8

const (
	// Credited while at least one endpoint has its proposal accepted.
	CreditAny CreditMode = iota
	// Credited only while both endpoints have their proposals accepted by each other.
	CreditMutual
)

func (m CreditMode) String() string {
	if m == CreditMutual {
		return "mutual"
	}
	return "any"
}

const (
	ownerBit = 0x1
	otherBit = 0x2
	bothBits = ownerBit | otherBit
)

// Shared state of an undirected edge: one bit per endpoint, set while that endpoint's
// proposal along this edge is accepted by the other endpoint.
type EdgeState struct {
	owner uint32 // Internal index of the endpoint that holds ownerBit.
	bits  uint32
}

func (s *EdgeState) flag(vidx uint32) uint32 {
	if s.owner == vidx {
		return ownerBit
	}
	return otherBit
}

func (s *EdgeState) isSet(vidx uint32) bool {
	return atomic.LoadUint32(&s.bits)&s.flag(vidx) != 0
}

// Sets the bit of vidx; reports whether the edge became credited under mode.
func (s *EdgeState) activate(vidx uint32, mode CreditMode) bool {
	flag := s.flag(vidx)
	old := utils.AtomicOrUint32(&s.bits, flag)
	if mode == CreditMutual {
		return old != bothBits && (old|flag) == bothBits
	}
	return old == 0
}

// Clears the bit of vidx; reports whether the edge stopped being credited under mode.
func (s *EdgeState) deactivate(vidx uint32, mode CreditMode) bool {
	flag := s.flag(vidx)
	old := utils.AtomicAndUint32(&s.bits, ^flag)
	if mode == CreditMutual {
		return old == bothBits
	}
	return old == flag
}

func (s *EdgeState) credited(mode CreditMode) bool {
	bits := atomic.LoadUint32(&s.bits)
	if mode == CreditMutual {
		return bits == bothBits
	}
	return bits != 0
}

func (s *EdgeState) clear() {
	atomic.StoreUint32(&s.bits, 0)
}
