// Package note defines the playable octave and the lock-free set of
// currently pressed notes.
package note

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"sync/atomic"
)

// Count is the number of note slots: one octave, C4 through B4.
const Count = 12

// Note is a slot index in [0, Count). It is used directly as an array index
// by the per-note state in the engine.
type Note uint8

const (
	C4 Note = iota
	CSharp4
	D4
	DSharp4
	E4
	F4
	FSharp4
	G4
	GSharp4
	A4
	ASharp4
	B4
)

// referenceIndex is the slot of A4, the 440 Hz tuning reference.
const referenceIndex = int(A4)

var names = [Count]string{"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4", "G4", "G#4", "A4", "A#4", "B4"}

var frequencies = func() (f [Count]float64) {
	for i := range f {
		f[i] = 440 * math.Pow(2, float64(i-referenceIndex)/12)
	}
	return f
}()

func (n Note) Valid() bool { return n < Count }

// Offset is the distance from A4 in semitones.
func (n Note) Offset() int { return int(n) - referenceIndex }

// Frequency returns the equal-tempered pitch in Hz.
func (n Note) Frequency() float64 { return frequencies[n] }

func (n Note) String() string {
	if !n.Valid() {
		return "Note(" + strconv.Itoa(int(n)) + ")"
	}
	return names[n]
}

// Bit returns the single-member set for n.
func (n Note) Bit() Set { return Set(1) << n }

// Parse accepts a sharp-spelled note name ("C#4", "a4") or a slot index
// ("0".."11").
func Parse(s string) (Note, error) {
	s = strings.TrimSpace(s)
	for i, name := range names {
		if strings.EqualFold(s, name) {
			return Note(i), nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil {
		if i < 0 || i >= Count {
			return 0, fmt.Errorf("note index %d out of range [0,%d)", i, Count)
		}
		return Note(i), nil
	}
	return 0, fmt.Errorf("unknown note %q", s)
}

// Set is a bitmask of notes, bit i for slot i.
type Set uint16

// All contains every playable note.
const All = Set(1<<Count - 1)

func (s Set) Has(n Note) bool     { return s&n.Bit() != 0 }
func (s Set) With(n Note) Set     { return s | n.Bit() }
func (s Set) Without(n Note) Set  { return s &^ n.Bit() }
func (s Set) Len() int            { return bits.OnesCount16(uint16(s & All)) }
func (s Set) Empty() bool         { return s&All == 0 }
func (s Set) Union(o Set) Set     { return s | o }
func (s Set) Intersect(o Set) Set { return s & o }

// Notes lists the members in slot order.
func (s Set) Notes() []Note {
	out := make([]Note, 0, s.Len())
	for n := Note(0); n < Count; n++ {
		if s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, 0, s.Len())
	for _, n := range s.Notes() {
		parts = append(parts, n.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Shared is the note set exchanged between the input goroutine and the
// audio goroutine. Membership is always replaced wholesale.
type Shared struct {
	bits atomic.Uint32
}

// Store replaces the whole membership. Bits above the playable range are
// dropped.
func (s *Shared) Store(set Set) { s.bits.Store(uint32(set & All)) }

// Snapshot returns the membership as of the call.
func (s *Shared) Snapshot() Set { return Set(s.bits.Load()) }
