// Package memory defines the learning memory record model and the typed
// store adapter that persists records in a vector store.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MemoryType categorizes a learning memory record.
type MemoryType string

const (
	// TypeLearningInteraction is a question/answer exchange with the tutor.
	TypeLearningInteraction MemoryType = "learning_interaction"
	// TypeSkillAssessment is a measured competency for a skill.
	TypeSkillAssessment MemoryType = "skill_assessment"
	// TypeContentMastery records mastery of a piece of learning content.
	TypeContentMastery MemoryType = "content_mastery"
	// TypeLearningPreference records how a student prefers to learn.
	TypeLearningPreference MemoryType = "learning_preference"
	// TypeErrorPattern records a recurring mistake.
	TypeErrorPattern MemoryType = "error_pattern"
	// TypeSuccessMilestone records a breakthrough or achievement.
	TypeSuccessMilestone MemoryType = "success_milestone"
)

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeLearningInteraction, TypeSkillAssessment, TypeContentMastery,
		TypeLearningPreference, TypeErrorPattern, TypeSuccessMilestone:
		return true
	default:
		return false
	}
}

func (t MemoryType) String() string {
	return string(t)
}

// ParseMemoryType converts a string to a MemoryType.
func ParseMemoryType(s string) (MemoryType, error) {
	t := MemoryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown memory type %q", ErrInvalidRecord, s)
	}
	return t, nil
}

// ErrInvalidRecord indicates a record failed validation before storage.
var ErrInvalidRecord = errors.New("invalid memory record")

// Record is a single learning memory. Records are append-only; identity is
// derived from the owner, type, and creation time.
type Record struct {
	// StudentID is the owning student.
	StudentID string `json:"student_id"`

	// Type categorizes the memory.
	Type MemoryType `json:"memory_type"`

	// Content is the free-text body that gets embedded.
	Content string `json:"content"`

	// Metadata holds structured attributes (topic, subject,
	// difficulty_level, learning_style, ...).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Timestamp is the creation time. Zero means "now" at store time.
	Timestamp time.Time `json:"timestamp"`
}

// ID returns the record identity: {student_id}_{memory_type}_{unix timestamp}.
func (r *Record) ID() string {
	return fmt.Sprintf("%s_%s_%d", r.StudentID, r.Type, r.Timestamp.Unix())
}

// Validate checks the record is storable.
func (r *Record) Validate() error {
	if r.StudentID == "" {
		return fmt.Errorf("%w: student ID required", ErrInvalidRecord)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown memory type %q", ErrInvalidRecord, r.Type)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: content required", ErrInvalidRecord)
	}
	return nil
}

// SanitizeMetadata normalizes metadata for storage: nil values are dropped,
// nested maps and slices are JSON-serialized to strings, scalars pass
// through. The vector store handles final stringification of scalars.
func SanitizeMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64:
			sanitized[key] = value
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				sanitized[key] = fmt.Sprintf("%v", value)
				continue
			}
			sanitized[key] = string(encoded)
		}
	}
	return sanitized
}

// ParseTimestamp extracts the creation time from stored metadata. Records
// without a parsable timestamp are dropped by the re-ranker, so callers must
// check ok.
func ParseTimestamp(metadata map[string]any) (time.Time, bool) {
	raw, exists := metadata["timestamp"]
	if !exists {
		return time.Time{}, false
	}
	s, isString := raw.(string)
	if !isString {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
