package vectorstore

import "fmt"

// Document represents a document to be stored in the vector database.
type Document struct {
	// ID is the unique identifier. Callers should provide explicit IDs;
	// stores auto-generate one (with a warning) if empty.
	ID string

	// Content is the text that gets embedded.
	Content string

	// Metadata holds scalar attributes used for filtering. Values must be
	// scalars or strings; nested structures are the caller's responsibility
	// to serialize first.
	Metadata map[string]any

	// Collection optionally overrides the store's default collection.
	Collection string
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]any
}

// Filter constrains a query by document metadata. All clauses are ANDed.
//
// Backends differ in native capability: Qdrant maps all three clause kinds
// onto its filter DSL, while chromem-go only supports equality and the store
// post-filters In/Not over an over-fetched candidate pool.
type Filter struct {
	// Equals requires metadata[key] == value.
	Equals map[string]any

	// In requires metadata[key] to equal one of the values.
	In map[string][]string

	// Not requires metadata[key] != value.
	Not map[string]any
}

// NewFilter returns an empty filter ready for clause assignment.
func NewFilter() *Filter {
	return &Filter{
		Equals: make(map[string]any),
		In:     make(map[string][]string),
		Not:    make(map[string]any),
	}
}

// IsEmpty reports whether the filter has no clauses.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Equals) == 0 && len(f.In) == 0 && len(f.Not) == 0)
}

// NeedsPostFilter reports whether the filter has clauses an equality-only
// backend cannot push down.
func (f *Filter) NeedsPostFilter() bool {
	return f != nil && (len(f.In) > 0 || len(f.Not) > 0)
}

// Clone returns a deep copy. Scope injection mutates filters, and callers may
// reuse theirs across queries.
func (f *Filter) Clone() *Filter {
	out := NewFilter()
	if f == nil {
		return out
	}
	for k, v := range f.Equals {
		out.Equals[k] = v
	}
	for k, vs := range f.In {
		out.In[k] = append([]string(nil), vs...)
	}
	for k, v := range f.Not {
		out.Not[k] = v
	}
	return out
}

// Matches reports whether the metadata satisfies every clause. Comparison is
// on canonical string form, matching how equality-only backends store
// metadata.
func (f *Filter) Matches(metadata map[string]any) bool {
	if f == nil {
		return true
	}
	for key, want := range f.Equals {
		got, ok := metadata[key]
		if !ok || canonical(got) != canonical(want) {
			return false
		}
	}
	for key, values := range f.In {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		found := false
		for _, v := range values {
			if canonical(got) == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, exclude := range f.Not {
		if got, ok := metadata[key]; ok && canonical(got) == canonical(exclude) {
			return false
		}
	}
	return true
}

// canonical renders a metadata value in the string form used for comparisons
// and for equality-only backends.
func canonical(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
