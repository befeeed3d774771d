package vectorstore

import (
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errors.New("plain error")))

	assert.True(t, IsTransientError(status.Error(grpccodes.Unavailable, "down")))
	assert.True(t, IsTransientError(status.Error(grpccodes.DeadlineExceeded, "slow")))
	assert.True(t, IsTransientError(status.Error(grpccodes.ResourceExhausted, "busy")))

	assert.False(t, IsTransientError(status.Error(grpccodes.InvalidArgument, "bad")))
	assert.False(t, IsTransientError(status.Error(grpccodes.NotFound, "missing")))
	assert.False(t, IsTransientError(status.Error(grpccodes.PermissionDenied, "no")))
}

func TestQdrantConfigValidate(t *testing.T) {
	cfg := QdrantConfig{}
	cfg.ApplyDefaults()
	// Defaults alone are not enough: collection and vector size required.
	require.Error(t, cfg.Validate())

	cfg.CollectionName = "learning_memories"
	cfg.VectorSize = 384
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, qdrant.Distance_Cosine, cfg.Distance)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestBuildFilter(t *testing.T) {
	f := NewFilter()
	f.Equals["student_id"] = "s1"
	f.Equals["subject"] = "math"
	f.In["difficulty_level"] = []string{"2", "3", "4"}
	f.Not["memory_type"] = "error_pattern"

	qf := buildFilter(f)
	require.NotNil(t, qf)
	assert.Len(t, qf.Must, 3)
	require.Len(t, qf.MustNot, 1)

	// The NOT clause carries the excluded keyword.
	cond := qf.MustNot[0].GetField()
	require.NotNil(t, cond)
	assert.Equal(t, "memory_type", cond.Key)
	assert.Equal(t, "error_pattern", cond.Match.GetKeyword())

	// IN clause maps to a keywords match.
	var foundIn bool
	for _, c := range qf.Must {
		field := c.GetField()
		if field != nil && field.Key == "difficulty_level" {
			foundIn = true
			require.NotNil(t, field.Match.GetKeywords())
			assert.Equal(t, []string{"2", "3", "4"}, field.Match.GetKeywords().Strings)
		}
	}
	assert.True(t, foundIn)
}

func TestBuildFilterEmpty(t *testing.T) {
	assert.Nil(t, buildFilter(NewFilter()))
}
