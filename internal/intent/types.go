// Package intent classifies a student query: what they want, how they feel,
// and whether the request trips safety or policy flags.
package intent

// Goal is the student's inferred objective for a query.
type Goal string

const (
	GoalSolveSpecificProblem Goal = "solve_specific_problem"
	GoalUnderstandConcept    Goal = "understand_concept"
	GoalPrepareForTest       Goal = "prepare_for_test"
	GoalExploration          Goal = "exploration"
	GoalUnknown              Goal = "unknown"
)

// Valid reports whether g is a known goal.
func (g Goal) Valid() bool {
	switch g {
	case GoalSolveSpecificProblem, GoalUnderstandConcept, GoalPrepareForTest,
		GoalExploration, GoalUnknown:
		return true
	default:
		return false
	}
}

func (g Goal) String() string {
	return string(g)
}

// AffectiveState is the student's inferred emotional state.
type AffectiveState string

const (
	AffectFrustrated AffectiveState = "frustrated"
	AffectConfused   AffectiveState = "confused"
	AffectCurious    AffectiveState = "curious"
	AffectConfident  AffectiveState = "confident"
	AffectNeutral    AffectiveState = "neutral"
)

// Valid reports whether a is a known affective state.
func (a AffectiveState) Valid() bool {
	switch a {
	case AffectFrustrated, AffectConfused, AffectCurious, AffectConfident, AffectNeutral:
		return true
	default:
		return false
	}
}

func (a AffectiveState) String() string {
	return string(a)
}

// RiskFlag is a safety or policy classification that short-circuits normal
// processing.
type RiskFlag string

const (
	RiskPIIDetected              RiskFlag = "pii_detected"
	RiskSelfHarmConcern          RiskFlag = "self_harm_concern"
	RiskAcademicIntegrityConcern RiskFlag = "academic_integrity_concern"
	RiskInappropriateContent     RiskFlag = "inappropriate_content"
)

// Valid reports whether r is a known risk flag.
func (r RiskFlag) Valid() bool {
	switch r {
	case RiskPIIDetected, RiskSelfHarmConcern, RiskAcademicIntegrityConcern, RiskInappropriateContent:
		return true
	default:
		return false
	}
}

func (r RiskFlag) String() string {
	return string(r)
}

// ParsedIntent is the classification result for one query. Ephemeral; one per
// request.
type ParsedIntent struct {
	// OriginalText is the query as received.
	OriginalText string

	// Topic is the inferred subject matter, or "unknown".
	Topic string

	// Goal is the inferred objective.
	Goal Goal

	// AffectiveState is the inferred emotional state.
	AffectiveState AffectiveState

	// RiskFlags holds any triggered safety flags. Non-empty means the
	// pipeline must refuse before any retrieval or write-back.
	RiskFlags []RiskFlag
}

// HasFlag reports whether the given flag was raised.
func (p *ParsedIntent) HasFlag(flag RiskFlag) bool {
	for _, f := range p.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Clear reports whether no risk flags were raised.
func (p *ParsedIntent) Clear() bool {
	return len(p.RiskFlags) == 0
}
