// Package dependency tracks the named, content-hashed resources a compiled artifact depends on.
// Equality of two dependency sets is the only criterion used to decide whether a cache entry
// is still valid: no timestamps are involved.
package dependency

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/robbyt/go-jitscript/internal/helpers"
)

// Kind classifies a dependency's resource.
type Kind uint32

const (
	// KindFile is a resource read from the filesystem.
	KindFile Kind = iota + 1
	// KindBuffer is a named in-memory resource.
	KindBuffer
	// KindModule is a pre-parsed module handed in by the caller.
	KindModule
	// KindLibrary is a runtime or driver library linked into the process.
	KindLibrary
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindBuffer:
		return "buffer"
	case KindModule:
		return "module"
	case KindLibrary:
		return "library"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Entry is one (kind, identifier, content hash) triple.
type Entry struct {
	Kind Kind           `cbor:"1,keyasint"`
	Name string         `cbor:"2,keyasint"`
	Hash helpers.Digest `cbor:"3,keyasint"`
}

// NewEntry creates an entry with the given hash.
func NewEntry(kind Kind, name string, hash helpers.Digest) Entry {
	return Entry{Kind: kind, Name: name, Hash: hash}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s:%s@%s", e.Kind, e.Name, e.Hash.Short())
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return bytes.Compare(a.Hash[:], b.Hash[:])
}

// Set is an insertion-ordered collection of dependency entries. The order is preserved for
// serialisation, but Equal compares sets without regard to order.
type Set struct {
	entries []Entry
}

// NewSet creates a set holding the given entries in order.
func NewSet(entries ...Entry) *Set {
	s := &Set{}
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add appends an entry.
func (s *Set) Add(e Entry) {
	s.entries = append(s.entries, e)
}

// AddDependency appends an entry built from its parts.
func (s *Set) AddDependency(kind Kind, name string, hash helpers.Digest) {
	s.Add(NewEntry(kind, name, hash))
}

// Entries returns a copy of the entries in insertion order.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	return slices.Clone(s.entries)
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Set) sorted() []Entry {
	out := s.Entries()
	slices.SortFunc(out, compareEntries)
	return out
}

// Equal reports whether both sets hold exactly the same members. A single mismatched, missing
// or extra entry makes the sets unequal.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	return slices.EqualFunc(s.sorted(), other.sorted(), func(a, b Entry) bool {
		return compareEntries(a, b) == 0
	})
}

// Diff returns the entries present only in s and only in other.
func (s *Set) Diff(other *Set) (onlyHere, onlyThere []Entry) {
	here, there := s.sorted(), other.sorted()
	i, j := 0, 0
	for i < len(here) && j < len(there) {
		switch c := compareEntries(here[i], there[j]); {
		case c == 0:
			i++
			j++
		case c < 0:
			onlyHere = append(onlyHere, here[i])
			i++
		default:
			onlyThere = append(onlyThere, there[j])
			j++
		}
	}
	onlyHere = append(onlyHere, here[i:]...)
	onlyThere = append(onlyThere, there[j:]...)
	return onlyHere, onlyThere
}

func (s *Set) String() string {
	return fmt.Sprintf("dependency.Set%v", s.Entries())
}
