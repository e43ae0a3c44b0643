package factors

import "strings"

// DefaultKey names the fallback record of every table.
const DefaultKey = "default"

// Entry is a keyed record. Aliases resolve to the same record as the key.
type Entry[T any] struct {
	Key     string
	Aliases []string
	Value   T
}

// Table resolves free text to exactly one record. Matching is
// case-insensitive substring containment: each key (and alias) is tested as a
// substring of the lowercased input, walking entries in priority order. The
// first hit wins; no hit yields the default record.
type Table[T any] struct {
	entries []Entry[T]
	def     T
}

// NewTable builds a table. The order of entries is the match priority.
func NewTable[T any](def T, entries ...Entry[T]) *Table[T] {
	t := &Table[T]{def: def}
	for _, e := range entries {
		e.Key = strings.ToLower(strings.TrimSpace(e.Key))
		if e.Key == "" || e.Key == DefaultKey {
			continue
		}
		aliases := make([]string, 0, len(e.Aliases))
		for _, a := range e.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				aliases = append(aliases, a)
			}
		}
		e.Aliases = aliases
		t.entries = append(t.entries, e)
	}
	return t
}

// Resolve returns the record matching input, or the default record.
func (t *Table[T]) Resolve(input string) T {
	if e, ok := t.match(input); ok {
		return e.Value
	}
	return t.def
}

// ResolveKey returns the key of the record matching input, or DefaultKey.
func (t *Table[T]) ResolveKey(input string) string {
	if e, ok := t.match(input); ok {
		return e.Key
	}
	return DefaultKey
}

// Lookup returns the record stored under an exact key.
func (t *Table[T]) Lookup(key string) (T, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == DefaultKey {
		return t.def, true
	}
	for _, e := range t.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// Default returns the fallback record.
func (t *Table[T]) Default() T { return t.def }

// Priority lists the non-default keys in match order.
func (t *Table[T]) Priority() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in priority order.
func (t *Table[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(t.entries))
	copy(out, t.entries)
	return out
}

// With returns a new table where entries replace records with the same key
// (keeping their priority slot) and unknown keys are appended. An entry keyed
// "default" replaces the fallback record.
func (t *Table[T]) With(entries ...Entry[T]) *Table[T] {
	def := t.def
	merged := t.Entries()
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		if key == DefaultKey {
			def = e.Value
			continue
		}
		replaced := false
		for i := range merged {
			if merged[i].Key == key {
				if len(e.Aliases) == 0 {
					e.Aliases = merged[i].Aliases
				}
				merged[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}
	return NewTable(def, merged...)
}

func (t *Table[T]) match(input string) (Entry[T], bool) {
	in := strings.ToLower(input)
	if strings.TrimSpace(in) == "" {
		return Entry[T]{}, false
	}
	for _, e := range t.entries {
		if strings.Contains(in, e.Key) {
			return e, true
		}
		for _, a := range e.Aliases {
			if strings.Contains(in, a) {
				return e, true
			}
		}
	}
	return Entry[T]{}, false
}
