package request

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestIDIsUUID(t *testing.T) {
	id := GenerateRequestID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateRequestID())
}

func TestGenerateCorrelationIDHasNoDashes(t *testing.T) {
	id := GenerateCorrelationID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}

func TestNewRequestContextInheritsCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "run-1")

	rc := NewRequestContext(ctx, http.MethodPost, "https://x/activate")
	assert.Equal(t, "run-1", rc.CorrelationID)
	assert.Equal(t, http.MethodPost, rc.Method)
	assert.Equal(t, "https://x/activate", rc.URL)
	assert.NotEmpty(t, rc.RequestID)
	assert.False(t, rc.Timestamp.IsZero())
}

func TestNewRequestContextGeneratesCorrelationID(t *testing.T) {
	rc := NewRequestContext(context.Background(), http.MethodGet, "https://x/progress")
	assert.NotEmpty(t, rc.CorrelationID)
}

func TestApplySetsHeaders(t *testing.T) {
	rc := &RequestContext{RequestID: "req-1", CorrelationID: "corr-1"}
	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)

	rc.Apply(req)

	assert.Equal(t, "req-1", req.Header.Get(HeaderRequestID))
	assert.Equal(t, "corr-1", req.Header.Get(HeaderCorrelationID))
}

func TestToHeadersSkipsEmpty(t *testing.T) {
	headers := (&RequestContext{}).ToHeaders()
	assert.Empty(t, headers)
}

func TestCorrelationIDMissing(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
}
