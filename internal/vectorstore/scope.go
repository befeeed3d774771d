package vectorstore

import (
	"context"
	"fmt"
	"regexp"
)

// metadata key under which the owning student is stored and filtered.
const ownerKey = "student_id"

// studentIDPattern constrains student IDs to safe metadata values.
var studentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// Scope identifies the student on whose behalf a store operation runs.
//
// Every query and write must carry a Scope in context. Per-student queries
// are constrained to the scope's records. Setting CrossStudent inverts the
// constraint: results exclude the requesting student's own records, which is
// how peer-pattern lookups avoid echoing a student back at themselves. Writes
// never honor CrossStudent; documents are always stamped with the owner.
type Scope struct {
	StudentID string

	// CrossStudent widens reads to other students' records while still
	// requiring an authenticated requester. It has no effect on writes.
	CrossStudent bool
}

// Validate checks the scope for use in filters and metadata.
func (s *Scope) Validate() error {
	if s == nil {
		return ErrMissingScope
	}
	if s.StudentID == "" {
		return fmt.Errorf("%w: empty student ID", ErrInvalidScope)
	}
	if !studentIDPattern.MatchString(s.StudentID) {
		return fmt.Errorf("%w: student ID must match %s", ErrInvalidScope, studentIDPattern)
	}
	return nil
}

type scopeCtxKey struct{}

// ContextWithScope attaches an owner scope to the context.
func ContextWithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, scope)
}

// ScopeFromContext extracts the owner scope, failing closed when absent.
func ScopeFromContext(ctx context.Context) (*Scope, error) {
	scope, ok := ctx.Value(scopeCtxKey{}).(*Scope)
	if !ok || scope == nil {
		return nil, ErrMissingScope
	}
	return scope, nil
}

// scopeFilter validates the context scope and merges its constraint into the
// caller's filter. The returned filter is a copy; the input is not mutated.
func scopeFilter(ctx context.Context, filter *Filter) (*Filter, error) {
	scope, err := ScopeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	out := filter.Clone()
	if scope.CrossStudent {
		out.Not[ownerKey] = scope.StudentID
	} else {
		out.Equals[ownerKey] = scope.StudentID
	}
	return out, nil
}

// scopeMetadata validates the context scope and stamps the owner onto every
// document, overwriting any caller-supplied value.
func scopeMetadata(ctx context.Context, docs []Document) error {
	scope, err := ScopeFromContext(ctx)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any)
		}
		docs[i].Metadata[ownerKey] = scope.StudentID
	}
	return nil
}
