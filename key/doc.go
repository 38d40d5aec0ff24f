// Package key provides key identification for terminal byte streams.
//
// This package defines the fundamental types for decoding keyboard input
// read from a raw-mode terminal:
//
//   - Table: Maps raw byte sequences (printable runes, control bytes, and
//     multi-byte ANSI escape sequences) to canonical key names
//   - Result: Reports how a partial byte sequence relates to the table
//   - Event: A press or release of a named key with a timestamp
//
// # Key Names
//
// Canonical key names follow the conventions of terminal key listeners:
// printable characters name themselves ("a", "1", "@"), while special keys
// use short lowercase names ("esc", "enter", "tab", "up", "f1", "pageup").
//
// # Incremental Matching
//
// Escape sequences arrive byte by byte, possibly split across reads. Lookup
// therefore reports three independent facts about a sequence: whether it is
// a complete key, whether it is a valid prefix of a longer key, or neither.
// A lone ESC byte is both complete ("esc") and a prefix of every ANSI
// sequence; the caller decides how long to wait before committing.
package key
