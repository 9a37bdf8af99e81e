package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/param"
)

// PhasePolicy decides what happens to a note's phase when it is attacked
// again after falling silent.
type PhasePolicy int32

const (
	// PhaseResetOnAttack restarts the cycle at 0 when a note is pressed from
	// amplitude 0. Re-presses of a still sounding note keep their phase.
	PhaseResetOnAttack PhasePolicy = iota
	// PhaseFree never resets; a note resumes where it stopped advancing.
	PhaseFree

	numPhasePolicies
)

func (p PhasePolicy) Valid() bool { return p >= 0 && p < numPhasePolicies }

func (p PhasePolicy) String() string {
	switch p {
	case PhaseResetOnAttack:
		return "reset"
	case PhaseFree:
		return "free"
	}
	return fmt.Sprintf("PhasePolicy(%d)", int32(p))
}

func ParsePhasePolicy(s string) (PhasePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset", "reset-on-attack":
		return PhaseResetOnAttack, nil
	case "free", "continuous":
		return PhaseFree, nil
	}
	return 0, fmt.Errorf("unknown phase policy %q (expected reset|free)", s)
}

type PolicyCodec struct{}

func (PolicyCodec) Encode(p PhasePolicy) uint32 {
	if !p.Valid() {
		panic(fmt.Sprintf("engine: storing invalid phase policy %d", int32(p)))
	}
	return uint32(p)
}

func (PolicyCodec) Decode(bits uint32) PhasePolicy {
	if bits >= uint32(numPhasePolicies) {
		panic(fmt.Sprintf("engine: invalid phase policy code %d", bits))
	}
	return PhasePolicy(bits)
}

type PolicyCell = param.Cell[PhasePolicy, PolicyCodec]

// PhaseStore holds one normalised phase accumulator per note slot.
type PhaseStore struct {
	phases [note.Count]float64
}

// Phase returns the position of n in its cycle, in [0,1).
func (s *PhaseStore) Phase(n note.Note) float64 { return s.phases[n] }

// Advance moves n forward by inc cycles and wraps into [0,1).
func (s *PhaseStore) Advance(n note.Note, inc float64) {
	p := s.phases[n] + inc
	if p >= 1 {
		p -= math.Floor(p)
	}
	s.phases[n] = p
}

func (s *PhaseStore) Reset(n note.Note) { s.phases[n] = 0 }

// ResetSet zeroes the phase of every member of set.
func (s *PhaseStore) ResetSet(set note.Set) {
	for n := note.Note(0); n < note.Count; n++ {
		if set.Has(n) {
			s.phases[n] = 0
		}
	}
}
