package key

import (
	"time"
	"unicode"
	"unicode/utf8"
)

// Kind distinguishes press events from release events.
type Kind int

const (
	// KindPress indicates a key was pressed.
	KindPress Kind = iota

	// KindRelease indicates a key was released.
	KindRelease
)

// String returns a human-readable name for the event kind.
func (k Kind) String() string {
	switch k {
	case KindPress:
		return "press"
	case KindRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Event represents a single press or release of a key.
type Event struct {
	// Name is the canonical key name ("a", "esc", "f1", ...).
	Name string

	// Kind is whether the key was pressed or released.
	Kind Kind

	// Time is when the event was produced.
	Time time.Time
}

// NewPress creates a press event for the named key.
func NewPress(name string, t time.Time) Event {
	return Event{Name: name, Kind: KindPress, Time: t}
}

// NewRelease creates a release event for the named key.
func NewRelease(name string, t time.Time) Event {
	return Event{Name: name, Kind: KindRelease, Time: t}
}

// IsPress returns true if this is a press event.
func (e Event) IsPress() bool {
	return e.Kind == KindPress
}

// IsRelease returns true if this is a release event.
func (e Event) IsRelease() bool {
	return e.Kind == KindRelease
}

// String returns a compact representation like "press(a)".
func (e Event) String() string {
	return e.Kind.String() + "(" + e.Name + ")"
}

// IsName reports whether name is a key the default table can produce:
// either a recognized special key name or a single printable rune.
func IsName(name string) bool {
	if name == "" {
		return false
	}
	if DefaultTable().HasName(name) {
		return true
	}
	if utf8.RuneCountInString(name) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsPrint(r)
}
