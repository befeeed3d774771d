// Package tutor orchestrates the answer pipeline: consent, classification,
// risk gating, retrieval, synthesis, and memory write-back.
package tutor

// Fixed refusal wording. Refusals are valid terminal responses, never
// errors, and carry no technical detail.
const (
	// RefusalIntegrity redirects assignment/test answer requests.
	RefusalIntegrity = "I can help you understand the concepts, but I cannot provide direct answers to assignments or tests. Let's work through a similar example problem."

	// RefusalPII asks the student to rephrase without personal details.
	RefusalPII = "It looks like you may have shared some personal information. To protect your privacy, please rephrase your question without including any personal details."

	// RefusalGeneric covers all remaining risk flags.
	RefusalGeneric = "I am unable to process this request. Please try rephrasing your question or ask something else."
)

// AnswerRequest is one student question entering the pipeline.
type AnswerRequest struct {
	// StudentID identifies the requesting student.
	StudentID string `json:"student_id"`

	// Question is the free-text query.
	Question string `json:"question"`

	// Subject optionally narrows retrieval (e.g. "math").
	Subject string `json:"subject,omitempty"`

	// Topic is the caller's topic hint. The classifier's extracted topic
	// overrides it when available.
	Topic string `json:"topic,omitempty"`

	// ContextLimit caps retrieved excerpts in the prompt. Zero uses the
	// configured default.
	ContextLimit int `json:"context_limit,omitempty"`
}

// PatternInsight is an anonymized excerpt from another student's learning
// history. Identity metadata is stripped before it leaves the service.
type PatternInsight struct {
	// Content is the record text.
	Content string `json:"content"`

	// MemoryType is success_milestone or error_pattern.
	MemoryType string `json:"memory_type"`

	// Topic is the record's topic, when present.
	Topic string `json:"topic,omitempty"`

	// Score is the similarity to the described challenge.
	Score float32 `json:"score"`
}

// Recommendation is a piece of previously mastered content suggested for
// review or progression.
type Recommendation struct {
	Content       string  `json:"content"`
	Topic         string  `json:"topic,omitempty"`
	Difficulty    int     `json:"difficulty"`
	LearningStyle string  `json:"learning_style,omitempty"`
	Score         float32 `json:"score"`
}

// Trajectory summarizes a student's learning history in a subject.
type Trajectory struct {
	// Assessments, ErrorPatterns, and Milestones count records by type.
	Assessments   int `json:"assessments"`
	ErrorPatterns int `json:"error_patterns"`
	Milestones    int `json:"milestones"`

	// RecentTopics lists distinct topics, newest first.
	RecentTopics []string `json:"recent_topics"`

	// DifficultyProgression lists recorded difficulty levels oldest first.
	DifficultyProgression []int `json:"difficulty_progression"`
}
