// Package keymap maps computer keyboard keys to notes.
package keymap

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cbegin/virtsynth-go/internal/note"
)

// DefaultLayout is the bottom letter row as a piano: white keys on
// Z X C V B N M, black keys on S D G H J.
const DefaultLayout = "zsxdcvgbhnjm"

// DefaultHold is how long a terminal key press keeps its note held when the
// terminal reports no key release.
const DefaultHold = 150 * time.Millisecond

// Layout assigns one key to each note, C4 first.
type Layout [note.Count]rune

func Default() Layout {
	l, err := ParseLayout(DefaultLayout)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLayout reads twelve distinct keys in note order. Letters are folded
// to lower case.
func ParseLayout(s string) (Layout, error) {
	var l Layout
	if n := utf8.RuneCountInString(s); n != note.Count {
		return l, fmt.Errorf("layout %q has %d keys, want %d", s, n, note.Count)
	}
	i := 0
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return l, fmt.Errorf("layout %q: key %d is not printable", s, i)
		}
		for j := 0; j < i; j++ {
			if l[j] == r {
				return l, fmt.Errorf("layout %q: key %q used for both %v and %v", s, r, note.Note(j), note.Note(i))
			}
		}
		l[i] = r
		i++
	}
	return l, nil
}

func (l Layout) String() string {
	var b strings.Builder
	for _, r := range l {
		b.WriteRune(r)
	}
	return b.String()
}

// Note returns the note bound to key r.
func (l Layout) Note(r rune) (note.Note, bool) {
	r = unicode.ToLower(r)
	for i, k := range l {
		if k == r {
			return note.Note(i), true
		}
	}
	return 0, false
}

// Key returns the key bound to n.
func (l Layout) Key(n note.Note) rune { return l[n] }

// Set converts the currently held keys to a note set. Unbound keys are
// ignored.
func (l Layout) Set(keys []rune) note.Set {
	var s note.Set
	for _, r := range keys {
		if n, ok := l.Note(r); ok {
			s = s.With(n)
		}
	}
	return s
}

// Holder turns a stream of key presses without releases, as terminals
// deliver them, into a held note set. A note stays held until hold has
// passed since its last press; auto-repeat keeps it alive. Holder is not
// safe for concurrent use.
type Holder struct {
	layout Layout
	hold   time.Duration
	last   [note.Count]time.Time
}

func NewHolder(layout Layout, hold time.Duration) *Holder {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Holder{layout: layout, hold: hold}
}

// Press records a press of r at now and reports whether r is a note key.
func (h *Holder) Press(r rune, now time.Time) bool {
	n, ok := h.layout.Note(r)
	if !ok {
		return false
	}
	h.last[n] = now
	return true
}

// Release drops n immediately.
func (h *Holder) Release(n note.Note) { h.last[n] = time.Time{} }

func (h *Holder) ReleaseAll() { h.last = [note.Count]time.Time{} }

// Set returns the notes still held at now.
func (h *Holder) Set(now time.Time) note.Set {
	var s note.Set
	for i, t := range h.last {
		if !t.IsZero() && now.Sub(t) < h.hold {
			s = s.With(note.Note(i))
		}
	}
	return s
}

func (h *Holder) Layout() Layout { return h.layout }
