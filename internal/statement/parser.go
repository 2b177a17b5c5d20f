package statement

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Parser converts one statement export format into transaction drafts.
// Malformed rows come back as RowErrors; only a file the parser cannot
// read at all returns an error.
type Parser interface {
	Parse(r io.Reader) ([]TransactionDraft, []RowError, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&DelimitedParser{})
	r.Register(&OFXParser{})
	r.Register(&AndesParser{})
	r.Register(&CartolaTextParser{})
	return r
}

// Parse runs the registered parser for format over raw statement bytes.
// An unknown format name fails the whole call with ErrUnsupportedFormat.
func Parse(raw []byte, format string) ([]TransactionDraft, []RowError, error) {
	p := DefaultRegistry().Get(format)
	if p == nil {
		return nil, nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	return p.Parse(bytes.NewReader(raw))
}
