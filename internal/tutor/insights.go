package tutor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/retrieval"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

const (
	defaultPatternLimit  = 5
	trajectoryCandidates = 50
	recentTopicLimit     = 5
)

// SimilarPatterns finds how other students overcame a similar challenge,
// searching success_milestone and error_pattern records while excluding the
// requesting student's own. Returned insights carry only content, type, and
// topic; identity metadata never leaves the service.
func (s *Service) SimilarPatterns(ctx context.Context, studentID, challenge string, limit int) ([]PatternInsight, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.similar_patterns")
	defer span.End()

	if challenge == "" {
		return nil, errors.New("challenge description is required")
	}
	if limit <= 0 {
		limit = defaultPatternLimit
	}

	scope := &vectorstore.Scope{StudentID: studentID, CrossStudent: true}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	scopedCtx := vectorstore.ContextWithScope(ctx, scope)

	filter := vectorstore.NewFilter()
	filter.In["memory_type"] = []string{
		memory.TypeSuccessMilestone.String(),
		memory.TypeErrorPattern.String(),
	}

	records, err := s.records.Search(scopedCtx, challenge, limit, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pattern search failed")
		return nil, fmt.Errorf("pattern search: %w", err)
	}

	insights := make([]PatternInsight, 0, len(records))
	for _, rec := range records {
		insight := PatternInsight{
			Content:    rec.Content,
			MemoryType: rec.Type.String(),
			Score:      rec.Score,
		}
		if topic, ok := rec.Metadata["topic"].(string); ok {
			insight.Topic = topic
		}
		insights = append(insights, insight)
	}

	span.SetStatus(codes.Ok, "")
	return insights, nil
}

// RecommendContent suggests the student's content_mastery records within the
// ±1 difficulty band, optionally matched to a learning style.
func (s *Service) RecommendContent(ctx context.Context, studentID, topic string, difficulty int, learningStyle string, limit int) ([]Recommendation, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.recommend_content")
	defer span.End()

	if difficulty < retrieval.MinDifficulty || difficulty > retrieval.MaxDifficulty {
		return nil, fmt.Errorf("difficulty must be in [%d, %d], got %d", retrieval.MinDifficulty, retrieval.MaxDifficulty, difficulty)
	}
	if limit <= 0 {
		limit = defaultPatternLimit
	}

	scope := &vectorstore.Scope{StudentID: studentID}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	scopedCtx := vectorstore.ContextWithScope(ctx, scope)

	low := int(math.Max(float64(retrieval.MinDifficulty), float64(difficulty-1)))
	high := int(math.Min(float64(retrieval.MaxDifficulty), float64(difficulty+1)))

	filter := vectorstore.NewFilter()
	filter.Equals["memory_type"] = memory.TypeContentMastery.String()
	band := make([]string, 0, high-low+1)
	for d := low; d <= high; d++ {
		band = append(band, strconv.Itoa(d))
	}
	filter.In["difficulty_level"] = band
	if learningStyle != "" {
		filter.Equals["learning_style"] = learningStyle
	}

	records, err := s.records.Search(scopedCtx, topic, limit, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommendation search failed")
		return nil, fmt.Errorf("recommendation search: %w", err)
	}

	recommendations := make([]Recommendation, 0, len(records))
	for _, rec := range records {
		recommendation := Recommendation{
			Content: rec.Content,
			Score:   rec.Score,
		}
		if t, ok := rec.Metadata["topic"].(string); ok {
			recommendation.Topic = t
		}
		if style, ok := rec.Metadata["learning_style"].(string); ok {
			recommendation.LearningStyle = style
		}
		if level, ok := parseMetadataInt(rec.Metadata["difficulty_level"]); ok {
			recommendation.Difficulty = level
		}
		recommendations = append(recommendations, recommendation)
	}

	span.SetStatus(codes.Ok, "")
	return recommendations, nil
}

// LearningTrajectory aggregates the student's assessment, error, and
// milestone records for a subject into counts, recent topics, and the
// difficulty progression over time.
func (s *Service) LearningTrajectory(ctx context.Context, studentID, subject string) (*Trajectory, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.learning_trajectory")
	defer span.End()

	scope := &vectorstore.Scope{StudentID: studentID}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	scopedCtx := vectorstore.ContextWithScope(ctx, scope)

	filter := vectorstore.NewFilter()
	filter.In["memory_type"] = []string{
		memory.TypeSkillAssessment.String(),
		memory.TypeErrorPattern.String(),
		memory.TypeSuccessMilestone.String(),
	}
	if subject != "" {
		filter.Equals["subject"] = subject
	}

	queryText := subject
	if queryText == "" {
		queryText = "learning progress"
	}

	records, err := s.records.Search(scopedCtx, queryText, trajectoryCandidates, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "trajectory search failed")
		return nil, fmt.Errorf("trajectory search: %w", err)
	}

	// Oldest first so the progression reads chronologically.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	trajectory := &Trajectory{}
	seenTopics := make(map[string]bool)

	for _, rec := range records {
		switch rec.Type {
		case memory.TypeSkillAssessment:
			trajectory.Assessments++
		case memory.TypeErrorPattern:
			trajectory.ErrorPatterns++
		case memory.TypeSuccessMilestone:
			trajectory.Milestones++
		}
		if level, ok := parseMetadataInt(rec.Metadata["difficulty_level"]); ok {
			trajectory.DifficultyProgression = append(trajectory.DifficultyProgression, level)
		}
	}

	// Topics newest first.
	for i := len(records) - 1; i >= 0 && len(trajectory.RecentTopics) < recentTopicLimit; i-- {
		topic, ok := records[i].Metadata["topic"].(string)
		if !ok || topic == "" || seenTopics[topic] {
			continue
		}
		seenTopics[topic] = true
		trajectory.RecentTopics = append(trajectory.RecentTopics, topic)
	}

	span.SetStatus(codes.Ok, "")
	return trajectory, nil
}

// RecordSkillAssessment stores a measured competency as a skill_assessment
// record, scaling competency in [0, 1] onto the 1-10 difficulty scale.
func (s *Service) RecordSkillAssessment(ctx context.Context, studentID, skill, subject string, competency float64) (string, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.record_skill_assessment")
	defer span.End()

	if skill == "" {
		return "", errors.New("skill is required")
	}
	if competency < 0 || competency > 1 {
		return "", fmt.Errorf("competency must be in [0, 1], got %g", competency)
	}

	scope := &vectorstore.Scope{StudentID: studentID}
	if err := scope.Validate(); err != nil {
		return "", err
	}
	scopedCtx := vectorstore.ContextWithScope(ctx, scope)

	level := int(math.Round(competency * retrieval.MaxDifficulty))
	if level < retrieval.MinDifficulty {
		level = retrieval.MinDifficulty
	}

	metadata := map[string]any{
		"topic":            skill,
		"competency":       competency,
		"difficulty_level": strconv.Itoa(level),
	}
	if subject != "" {
		metadata["subject"] = subject
	}

	id, err := s.records.Add(scopedCtx, memory.Record{
		StudentID: studentID,
		Type:      memory.TypeSkillAssessment,
		Content:   fmt.Sprintf("Skill assessment: %s at competency %.2f (level %d)", skill, competency, level),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment write failed")
		return "", err
	}

	span.SetStatus(codes.Ok, "")
	return id, nil
}

// parseMetadataInt reads an integer that backends may return as string or
// number.
func parseMetadataInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
