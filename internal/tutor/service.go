package tutor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/consent"
	"github.com/fyrsmithlabs/tutord/internal/intent"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/retrieval"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/tutord/internal/tutor"

// DefaultContextLimit caps the excerpts included in a synthesis prompt.
const DefaultContextLimit = 5

// Classifier extracts intent and risk from a question.
type Classifier interface {
	Classify(ctx context.Context, text string) (*intent.ParsedIntent, error)
}

// Retriever fetches ranked records and difficulty estimates.
type Retriever interface {
	Retrieve(ctx context.Context, student *consent.Student, topic string, opts retrieval.Options) ([]retrieval.RankedRecord, int, error)
	CurrentDifficulty(ctx context.Context, studentID, topic, subject string) (int, error)
}

// Config tunes the tutor service.
type Config struct {
	// ContextLimit caps retrieved excerpts per answer. Zero selects
	// DefaultContextLimit.
	ContextLimit int
}

// Service runs the tutoring pipeline over shared read-only clients. Each
// request is independent; the service holds no per-request state.
type Service struct {
	gate         consent.Gate
	classifier   Classifier
	retriever    Retriever
	records      *memory.RecordStore
	completions  llm.Client
	logger       *logging.Logger
	contextLimit int

	tracer         trace.Tracer
	meter          metric.Meter
	answerCounter  metric.Int64Counter
	refusalCounter metric.Int64Counter
}

// NewService creates the tutor service.
func NewService(gate consent.Gate, classifier Classifier, retriever Retriever, records *memory.RecordStore, completions llm.Client, cfg Config, logger *logging.Logger) (*Service, error) {
	if gate == nil {
		return nil, errors.New("consent gate is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if completions == nil {
		return nil, errors.New("completion client is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	contextLimit := cfg.ContextLimit
	if contextLimit <= 0 {
		contextLimit = DefaultContextLimit
	}

	s := &Service{
		gate:         gate,
		classifier:   classifier,
		retriever:    retriever,
		records:      records,
		completions:  completions,
		logger:       logger,
		contextLimit: contextLimit,
		tracer:       otel.Tracer(instrumentationName),
		meter:        otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.answerCounter, err = s.meter.Int64Counter(
		"tutord.tutor.answers_total",
		metric.WithDescription("Total answered questions"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create answer counter", zap.Error(err))
	}

	s.refusalCounter, err = s.meter.Int64Counter(
		"tutord.tutor.refusals_total",
		metric.WithDescription("Total refused questions by risk flag"),
		metric.WithUnit("{refusal}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create refusal counter", zap.Error(err))
	}
}

// Answer runs the full pipeline for one question and returns the response
// text. Policy refusals come back as normal responses; only infrastructure
// failures are errors. Every non-refused exchange is written back as a
// learning_interaction record, even when retrieval found nothing.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.answer")
	defer span.End()

	if req.Question == "" {
		return "", errors.New("question is required")
	}
	scope := &vectorstore.Scope{StudentID: req.StudentID}
	if err := scope.Validate(); err != nil {
		return "", err
	}

	ctx = logging.WithStudentID(ctx, req.StudentID)

	student, err := s.gate.Resolve(ctx, req.StudentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "consent resolution failed")
		return "", fmt.Errorf("consent: %w", err)
	}
	span.SetAttributes(attribute.String("consent_level", student.ConsentLevel.String()))

	parsed, err := s.classifier.Classify(ctx, req.Question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return "", fmt.Errorf("classify: %w", err)
	}

	if refusal, refused := s.riskGate(ctx, parsed); refused {
		span.SetAttributes(attribute.Bool("refused", true))
		span.SetStatus(codes.Ok, "")
		return refusal, nil
	}

	topic := req.Topic
	if parsed.Topic != "" && parsed.Topic != "unknown" {
		topic = parsed.Topic
	}
	span.SetAttributes(attribute.String("topic", topic))

	records, difficulty, err := s.retriever.Retrieve(ctx, student, topic, retrieval.Options{
		Subject: req.Subject,
		Limit:   s.resolveContextLimit(req.ContextLimit),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return "", fmt.Errorf("retrieve: %w", err)
	}

	contextBlock, titles := buildContext(records)
	prompt := buildPrompt(req.Question, parsed, contextBlock, titles)

	answer, err := s.completions.Complete(ctx, llm.Request{
		System:      tutorSystem,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", fmt.Errorf("complete: %w", err)
	}

	if err := s.writeBack(ctx, student.ID, req, parsed, topic, difficulty, answer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write-back failed")
		return "", err
	}

	if s.answerCounter != nil {
		s.answerCounter.Add(ctx, 1)
	}
	span.SetStatus(codes.Ok, "")
	return answer, nil
}

// riskGate maps risk flags to fixed refusals: integrity first, then PII,
// then a generic refusal for anything else. Refusals happen before any
// retrieval or write-back.
func (s *Service) riskGate(ctx context.Context, parsed *intent.ParsedIntent) (string, bool) {
	if parsed.Clear() {
		return "", false
	}

	var refusal string
	var flag intent.RiskFlag
	switch {
	case parsed.HasFlag(intent.RiskAcademicIntegrityConcern):
		refusal, flag = RefusalIntegrity, intent.RiskAcademicIntegrityConcern
	case parsed.HasFlag(intent.RiskPIIDetected):
		refusal, flag = RefusalPII, intent.RiskPIIDetected
	default:
		refusal, flag = RefusalGeneric, parsed.RiskFlags[0]
	}

	s.logger.Info(ctx, "question refused", zap.String("risk_flag", flag.String()))
	if s.refusalCounter != nil {
		s.refusalCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_flag", flag.String())))
	}
	return refusal, true
}

// writeBack stores the exchange as a learning_interaction keyed to the
// assessed difficulty. Write failures propagate; a lost memory is an
// infrastructure error, not a degraded success.
func (s *Service) writeBack(ctx context.Context, studentID string, req AnswerRequest, parsed *intent.ParsedIntent, topic string, difficulty int, answer string) error {
	scopedCtx := vectorstore.ContextWithScope(ctx, &vectorstore.Scope{StudentID: studentID})

	metadata := map[string]any{
		"topic":            topic,
		"goal":             parsed.Goal.String(),
		"affective_state":  parsed.AffectiveState.String(),
		"difficulty_level": strconv.Itoa(difficulty),
		"learning_style":   "mixed",
		"document_title":   fmt.Sprintf("Tutoring session: %s", topic),
	}
	if req.Subject != "" {
		metadata["subject"] = req.Subject
	}

	_, err := s.records.Add(scopedCtx, memory.Record{
		StudentID: studentID,
		Type:      memory.TypeLearningInteraction,
		Content:   fmt.Sprintf("Q: %s\nA: %s", req.Question, answer),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("write-back: %w", err)
	}
	return nil
}

func (s *Service) resolveContextLimit(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.contextLimit
}
