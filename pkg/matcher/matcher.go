// Package matcher implements the two request matchers: identity matching on a
// resource's type (optionally including its tags) and name/pattern matching on
// a resource's display name.
package matcher

import (
	"errors"
	"fmt"
	"maps"
	"regexp"

	"corenet/pkg/types"
)

var ErrInvalidPattern = errors.New("invalid pattern")

// Identity matches resources of the target's type.
type Identity struct {
	target    types.Resource
	exactTags bool
}

// NewIdentity creates an identity matcher. When exactTags is set, candidates
// must also carry exactly the target's tags.
func NewIdentity(target types.Resource, exactTags bool) *Identity {
	return &Identity{
		target:    target,
		exactTags: exactTags,
	}
}

func (m *Identity) Matches(r types.Resource) bool {
	if r.Type != m.target.Type {
		return false
	}
	if m.exactTags && !maps.Equal(r.Tags, m.target.Tags) {
		return false
	}
	return true
}

func (m *Identity) String() string {
	if m.exactTags {
		return fmt.Sprintf("type=%s tags=%v", m.target.Type, m.target.Tags)
	}
	return "type=" + m.target.Type
}

// Pattern matches resources by display name.
type Pattern struct {
	pattern string
	re      *regexp.Regexp // nil for literal patterns
}

// NewPattern creates a name matcher. A pattern without regular expression
// metacharacters is compared literally; anything else must be a valid regular
// expression and has to match the whole name.
func NewPattern(pattern string) (*Pattern, error) {
	m := &Pattern{pattern: pattern}
	if regexp.QuoteMeta(pattern) == pattern {
		return m, nil
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	m.re = re
	return m, nil
}

// MustPattern is like NewPattern but panics on an invalid pattern.
func MustPattern(pattern string) *Pattern {
	m, err := NewPattern(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Pattern) Matches(r types.Resource) bool {
	if r.Name == m.pattern {
		return true
	}
	return m.re != nil && m.re.MatchString(r.Name)
}

// Literal reports whether the pattern is compared as a plain string.
func (m *Pattern) Literal() bool {
	return m.re == nil
}

func (m *Pattern) String() string {
	return "name=" + m.pattern
}
