// Package consent resolves a student's data-usage consent level. Every
// request that touches student memory passes through the gate first.
package consent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// ConsentLevel controls how much of a student's history may be used.
type ConsentLevel string

const (
	// LevelFullProfile allows full personalization from the student's
	// complete learning history.
	LevelFullProfile ConsentLevel = "full_profile"

	// LevelLimitedAnonymized allows retrieval with identity fields stripped
	// from anything that leaves the pipeline.
	LevelLimitedAnonymized ConsentLevel = "limited_anonymized"

	// LevelMinimalPseudonymous disables history retrieval entirely. Only the
	// standalone difficulty estimate runs.
	LevelMinimalPseudonymous ConsentLevel = "minimal_pseudonymous"
)

// Valid reports whether l is a known consent level.
func (l ConsentLevel) Valid() bool {
	switch l {
	case LevelFullProfile, LevelLimitedAnonymized, LevelMinimalPseudonymous:
		return true
	default:
		return false
	}
}

func (l ConsentLevel) String() string {
	return string(l)
}

// AllowsRetrieval reports whether memory retrieval is permitted at this
// level.
func (l ConsentLevel) AllowsRetrieval() bool {
	switch l {
	case LevelFullProfile, LevelLimitedAnonymized:
		return true
	case LevelMinimalPseudonymous:
		return false
	default:
		return false
	}
}

// ParseConsentLevel converts a string to a ConsentLevel.
func ParseConsentLevel(s string) (ConsentLevel, error) {
	l := ConsentLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown consent level %q", s)
	}
	return l, nil
}

// ErrConsentResolution indicates the consent backing store failed. Callers
// must fail the request rather than assume a level; if any fallback is ever
// taken it must be the most restrictive one.
var ErrConsentResolution = errors.New("consent resolution failed")

// Student is the per-request view of a student's consent. Built fresh on
// every resolve, never cached, so consent changes take effect immediately.
type Student struct {
	ID           string
	ConsentLevel ConsentLevel
}

// Gate resolves consent for a student.
type Gate interface {
	// Resolve returns the student's current consent level. Unknown students
	// get the configured default. A backing-store failure is an error, never
	// a silent downgrade or upgrade.
	Resolve(ctx context.Context, studentID string) (*Student, error)
}

// ConfigGate resolves consent from static configuration.
type ConfigGate struct {
	defaultLevel ConsentLevel
	students     map[string]ConsentLevel
	logger       *logging.Logger
}

// NewConfigGate builds a gate from a student-to-level map. Entries with
// invalid levels are rejected up front rather than surprising at request
// time.
func NewConfigGate(defaultLevel string, students map[string]string, logger *logging.Logger) (*ConfigGate, error) {
	def := LevelMinimalPseudonymous
	if defaultLevel != "" {
		parsed, err := ParseConsentLevel(defaultLevel)
		if err != nil {
			return nil, fmt.Errorf("default consent level: %w", err)
		}
		def = parsed
	}

	resolved := make(map[string]ConsentLevel, len(students))
	for studentID, raw := range students {
		level, err := ParseConsentLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("student %q: %w", studentID, err)
		}
		resolved[studentID] = level
	}

	if logger == nil {
		logger = logging.NewNop()
	}

	return &ConfigGate{
		defaultLevel: def,
		students:     resolved,
		logger:       logger,
	}, nil
}

// Resolve returns the configured level for the student, or the default for
// unknown students.
func (g *ConfigGate) Resolve(ctx context.Context, studentID string) (*Student, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: empty student ID", ErrConsentResolution)
	}

	level, known := g.students[studentID]
	if !known {
		level = g.defaultLevel
		g.logger.Debug(ctx, "unknown student, applying default consent",
			zap.String("consent_level", level.String()))
	}

	return &Student{ID: studentID, ConsentLevel: level}, nil
}

var _ Gate = (*ConfigGate)(nil)
