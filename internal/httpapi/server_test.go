package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

type fakeTutor struct {
	answer     string
	answerErr  error
	lastAnswer tutor.AnswerRequest
	insights   []tutor.PatternInsight
	trajectory *tutor.Trajectory
	recordID   string
}

func (f *fakeTutor) Answer(_ context.Context, req tutor.AnswerRequest) (string, error) {
	f.lastAnswer = req
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func (f *fakeTutor) SimilarPatterns(_ context.Context, _, _ string, _ int) ([]tutor.PatternInsight, error) {
	return f.insights, nil
}

func (f *fakeTutor) RecommendContent(_ context.Context, _, _ string, _ int, _ string, _ int) ([]tutor.Recommendation, error) {
	return nil, nil
}

func (f *fakeTutor) LearningTrajectory(_ context.Context, _, _ string) (*tutor.Trajectory, error) {
	return f.trajectory, nil
}

func (f *fakeTutor) RecordSkillAssessment(_ context.Context, _, _, _ string, _ float64) (string, error) {
	return f.recordID, nil
}

var _ TutorService = (*fakeTutor)(nil)

func newTestServer(t *testing.T, svc TutorService) *Server {
	t.Helper()
	srv, err := NewServer(svc, Config{}, nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{})

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{})

	rec := doJSON(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleAnswer(t *testing.T) {
	ft := &fakeTutor{answer: "a derivative measures instantaneous change"}
	srv := newTestServer(t, ft)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/answer",
		`{"student_id":"s1","question":"what is a derivative?","subject":"math"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a derivative measures instantaneous change", resp.Answer)
	assert.Equal(t, "s1", ft.lastAnswer.StudentID)
	assert.Equal(t, "math", ft.lastAnswer.Subject)
}

func TestHandleAnswerValidation(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/answer", `{"question":"no student"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/answer", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnswerStoreErrorMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{answerErr: memory.ErrStoreQuery})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/answer",
		`{"student_id":"s1","question":"q"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlePatterns(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{insights: []tutor.PatternInsight{
		{Content: "practiced daily", MemoryType: "success_milestone", Score: 0.8},
	}})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/patterns",
		`{"student_id":"s1","challenge":"fractions are hard"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "practiced daily")
}

func TestHandlePatternsRequiresChallenge(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/patterns", `{"student_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTrajectory(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{trajectory: &tutor.Trajectory{
		Assessments:  2,
		RecentTopics: []string{"decimals"},
	}})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/students/s1/trajectory?subject=math", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tutor.Trajectory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Assessments)
	assert.Equal(t, []string{"decimals"}, resp.RecentTopics)
}

func TestHandleAssessment(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{recordID: "s1_skill_assessment_1700000000"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/assessments",
		`{"student_id":"s1","skill":"long division","competency":0.7}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "s1_skill_assessment_1700000000")
}

func TestHandleAssessmentValidation(t *testing.T) {
	srv := newTestServer(t, &fakeTutor{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/assessments", `{"student_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
