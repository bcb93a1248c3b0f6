package email

import (
	"fmt"
	"strings"
)

// Header is a single message header. Value usually holds a string but may
// carry a typed value (bool, int, map) set by the caller.
type Header struct {
	Name  string
	Value any
}

// String returns the header field body.
func (h Header) String() string {
	switch v := h.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// HeaderSet is an ordered header collection. Names are unique under a
// case-insensitive match. The zero value is not usable; use NewHeaderSet.
type HeaderSet struct {
	headers []Header
}

// NewHeaderSet creates an empty header set.
func NewHeaderSet() *HeaderSet {
	return &HeaderSet{}
}

// Add appends a header, replacing the value of an existing header with the
// same name.
func (s *HeaderSet) Add(name string, value any) {
	if i := s.index(name); i >= 0 {
		s.headers[i].Value = value
		return
	}
	s.headers = append(s.headers, Header{Name: name, Value: value})
}

// Set is an alias of Add kept for readability at call sites that overwrite.
func (s *HeaderSet) Set(name string, value any) {
	s.Add(name, value)
}

// Get returns the header matching name case-insensitively.
func (s *HeaderSet) Get(name string) (Header, bool) {
	if i := s.index(name); i >= 0 {
		return s.headers[i], true
	}
	return Header{}, false
}

// Has reports whether a header with the given name exists.
func (s *HeaderSet) Has(name string) bool {
	return s.index(name) >= 0
}

// Remove deletes the header with the given name, if present.
func (s *HeaderSet) Remove(name string) {
	if i := s.index(name); i >= 0 {
		s.headers = append(s.headers[:i], s.headers[i+1:]...)
	}
}

// All returns a copy of the headers in insertion order.
func (s *HeaderSet) All() []Header {
	out := make([]Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// Len returns the number of headers.
func (s *HeaderSet) Len() int {
	return len(s.headers)
}

// Clone returns an independent copy of the set. Header values are shared.
func (s *HeaderSet) Clone() *HeaderSet {
	return &HeaderSet{headers: s.All()}
}

func (s *HeaderSet) index(name string) int {
	for i, h := range s.headers {
		if strings.EqualFold(h.Name, name) {
			return i
		}
	}
	return -1
}
