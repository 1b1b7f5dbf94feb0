package request

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header names stamped on every outgoing call.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderUserAgent     = "User-Agent"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
)

// UserAgent identifies this integration to the CI/CD API.
const UserAgent = "sncicd_extint_github"

// GenerateRequestID generates a request ID
func GenerateRequestID() string {
	return uuid.NewString()
}

// GenerateCorrelationID generates a correlation ID shared by every call of one run
func GenerateCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RequestContext carries identifiers for a single outgoing request.
type RequestContext struct {
	RequestID     string
	CorrelationID string
	Method        string
	URL           string
	Timestamp     time.Time
}

// NewRequestContext creates a request context for method/url, inheriting the
// correlation ID stored in ctx (or generating one).
func NewRequestContext(ctx context.Context, method, url string) *RequestContext {
	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return &RequestContext{
		RequestID:     GenerateRequestID(),
		CorrelationID: correlationID,
		Method:        method,
		URL:           url,
		Timestamp:     time.Now(),
	}
}

// ToHeaders converts request context to HTTP headers
func (rc *RequestContext) ToHeaders() http.Header {
	headers := make(http.Header)
	if rc.RequestID != "" {
		headers.Set(HeaderRequestID, rc.RequestID)
	}
	if rc.CorrelationID != "" {
		headers.Set(HeaderCorrelationID, rc.CorrelationID)
	}
	return headers
}

// Apply stamps the identifiers onto req.
func (rc *RequestContext) Apply(req *http.Request) {
	for k, v := range rc.ToHeaders() {
		req.Header[k] = v
	}
}

// Elapsed returns the time since the request context was created.
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.Timestamp)
}

type correlationIDKey struct{}

// WithCorrelationID stores the run-wide correlation ID in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the correlation ID from ctx.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
