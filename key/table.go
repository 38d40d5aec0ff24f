package key

import (
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Result reports how a byte sequence relates to the table.
type Result struct {
	// Name is the canonical key name when Complete is true.
	Name string

	// Complete is true if the sequence maps to a key.
	Complete bool

	// Prefix is true if the sequence is a strict prefix of at least one
	// longer entry, so reading more bytes could still produce a match.
	Prefix bool
}

// sequenceNames maps control bytes and ANSI escape sequences to key names.
// Covers the encodings emitted by common terminals (xterm, rxvt, tmux,
// the Linux console) for the same logical keys.
var sequenceNames = map[string]string{
	// Control characters
	"\x1b": "esc",
	"\x7f": "backspace",
	"\t":   "tab",
	"\n":   "enter",
	"\r":   "enter", // raw mode delivers CR for the Enter key
	" ":    "space",

	// Navigation and editing
	"\x1b[2~": "insert",
	"\x1b[3~": "delete",
	"\x1b[5~": "pageup",
	"\x1b[6~": "pagedown",
	"\x1b[H":  "home",
	"\x1b[F":  "end",
	"\x1b[A":  "up",
	"\x1b[B":  "down",
	"\x1b[C":  "right",
	"\x1b[D":  "left",

	// Function keys
	"\x1bOP":   "f1",
	"\x1bOQ":   "f2",
	"\x1bOR":   "f3",
	"\x1bOS":   "f4",
	"\x1b[15~": "f5",
	"\x1b[17~": "f6",
	"\x1b[18~": "f7",
	"\x1b[19~": "f8",
	"\x1b[20~": "f9",
	"\x1b[21~": "f10",
	"\x1b[23~": "f11",
	"\x1b[24~": "f12",
	"\x1b[25~": "f13",
	"\x1b[26~": "f14",
	"\x1b[28~": "f15",
	"\x1b[29~": "f16",
	"\x1b[31~": "f17",
	"\x1b[32~": "f18",
	"\x1b[33~": "f19",
	"\x1b[34~": "f20",

	// Tmux and Emacs variants
	"\x1bOH": "home",
	"\x1bOF": "end",
	"\x1bOA": "up",
	"\x1bOB": "down",
	"\x1bOC": "right",
	"\x1bOD": "left",

	// Rxvt variants
	"\x1b[1~":  "home",
	"\x1b[4~":  "end",
	"\x1b[11~": "f1",
	"\x1b[12~": "f2",
	"\x1b[13~": "f3",
	"\x1b[14~": "f4",

	// Linux console
	"\x1b[[A": "f1",
	"\x1b[[B": "f2",
	"\x1b[[C": "f3",
	"\x1b[[D": "f4",
	"\x1b[[E": "f5",

	// Xterm shifted function keys
	"\x1b[1;2P":  "f13",
	"\x1b[1;2Q":  "f14",
	"\x1b[1;2S":  "f16",
	"\x1b[15;2~": "f17",
	"\x1b[17;2~": "f18",
	"\x1b[18;2~": "f19",
	"\x1b[19;2~": "f20",
	"\x1b[20;2~": "f21",
	"\x1b[21;2~": "f22",
	"\x1b[23;2~": "f23",
	"\x1b[24;2~": "f24",
}

// Table maps raw byte sequences to canonical key names and supports the
// incremental matching needed to assemble escape sequences from a stream.
// Tables are immutable after construction and safe for concurrent use.
type Table struct {
	sequences map[string]string
	prefixes  map[string]struct{}
	names     map[string]struct{}
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns the shared table covering the standard terminal
// key encodings.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = newTable(sequenceNames)
	})
	return defaultTable
}

func newTable(sequences map[string]string) *Table {
	t := &Table{
		sequences: sequences,
		prefixes:  make(map[string]struct{}),
		names:     make(map[string]struct{}, len(sequences)),
	}
	for seq, name := range sequences {
		t.names[name] = struct{}{}
		for i := 1; i < len(seq); i++ {
			t.prefixes[seq[:i]] = struct{}{}
		}
	}
	return t
}

// Lookup reports how seq relates to the table. A sequence may be both
// Complete and Prefix at once: ESC alone is the "esc" key and also starts
// every ANSI sequence.
func (t *Table) Lookup(seq []byte) Result {
	if len(seq) == 0 {
		return Result{}
	}

	s := string(seq)
	_, isPrefix := t.prefixes[s]

	if name, ok := t.sequences[s]; ok {
		return Result{Name: name, Complete: true, Prefix: isPrefix}
	}
	if isPrefix {
		return Result{Prefix: true}
	}

	// Not a known sequence: printable runes name themselves. Escape
	// sequences never reach here because ESC is always a table prefix.
	return lookupRune(seq)
}

// lookupRune resolves a byte sequence as a single printable UTF-8 rune.
// Incomplete multi-byte runes report Prefix so the caller reads on.
func lookupRune(seq []byte) Result {
	if !utf8.FullRune(seq) {
		// A leading byte of a multi-byte rune is worth waiting for;
		// a stray continuation byte is not.
		if utf8.RuneStart(seq[0]) && len(seq) < utf8.UTFMax {
			return Result{Prefix: true}
		}
		return Result{}
	}

	r, size := utf8.DecodeRune(seq)
	if r == utf8.RuneError || size != len(seq) || !unicode.IsPrint(r) {
		return Result{}
	}
	return Result{Name: string(seq), Complete: true}
}

// HasName returns true if name is one of the table's special key names.
func (t *Table) HasName(name string) bool {
	_, ok := t.names[name]
	return ok
}

// Names returns the sorted list of special key names the table can produce.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.names))
	for name := range t.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
