// Package kv implements an ordered, case-insensitive multimap used to
// hold HTTP headers, query parameters and route captures throughout
// httpcore. Linear search beats a map on the small entry counts a single
// request or response typically carries.
package kv

import (
	"github.com/indigo-web/utils/strcomp"
)

// Pair is a single key-value entry, exposed for iteration.
type Pair struct {
	Key, Value string
}

// Storage is an append-ordered (string, string) multimap with
// case-insensitive key lookup. Zero value is ready to use.
type Storage struct {
	pairs      []Pair
	uniqueBuff []string
	valuesBuff []string
}

// New returns an empty Storage.
func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns a Storage with room for n entries pre-allocated.
func NewPrealloc(n int) *Storage {
	return &Storage{pairs: make([]Pair, 0, n)}
}

// Add appends a new pair, preserving insertion order among same-key pairs.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{Key: key, Value: value})
	return s
}

// Set replaces every existing occurrence of key with a single (key, value) pair.
func (s *Storage) Set(key, value string) *Storage {
	s.Delete(key)
	return s.Add(key, value)
}

// Delete removes every pair matching key.
func (s *Storage) Delete(key string) {
	filtered := s.pairs[:0]
	for _, p := range s.pairs {
		if !strcomp.EqualFold(p.Key, key) {
			filtered = append(filtered, p)
		}
	}
	s.pairs = filtered
}

// Value returns the first value for key, or "" if absent.
func (s *Storage) Value(key string) string {
	return s.ValueOr(key, "")
}

// ValueOr returns the first value for key, or the fallback if absent.
func (s *Storage) ValueOr(key, or string) string {
	v, found := s.Get(key)
	if !found {
		return or
	}
	return v
}

// Get returns the first value for key and whether it was found.
func (s *Storage) Get(key string) (value string, found bool) {
	for _, p := range s.pairs {
		if strcomp.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// Values returns all values for key, in insertion order.
//
// WARNING: the returned slice is reused across calls; copy it if it must
// outlive the next call to Values.
func (s *Storage) Values(key string) []string {
	s.valuesBuff = s.valuesBuff[:0]
	for _, p := range s.pairs {
		if strcomp.EqualFold(p.Key, key) {
			s.valuesBuff = append(s.valuesBuff, p.Value)
		}
	}
	if len(s.valuesBuff) == 0 {
		return nil
	}
	return s.valuesBuff
}

// Keys returns every unique key, in first-seen order.
//
// WARNING: the returned slice is reused across calls.
func (s *Storage) Keys() []string {
	s.uniqueBuff = s.uniqueBuff[:0]
	for _, p := range s.pairs {
		if !containsFold(s.uniqueBuff, p.Key) {
			s.uniqueBuff = append(s.uniqueBuff, p.Key)
		}
	}
	return s.uniqueBuff
}

// Has reports whether any pair matches key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Len returns the total number of pairs stored.
func (s *Storage) Len() int {
	return len(s.pairs)
}

// Each iterates over every pair in insertion order, stopping early if fn
// returns false.
func (s *Storage) Each(fn func(key, value string) bool) {
	for _, p := range s.pairs {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clear empties the storage while retaining its backing array.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func containsFold(list []string, key string) bool {
	for _, k := range list {
		if strcomp.EqualFold(k, key) {
			return true
		}
	}
	return false
}
