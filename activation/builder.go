package activation

import (
	"net/http"
	"strings"

	"github.com/leeforge/sncicd-plugin-activate/client"
	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
	"github.com/leeforge/sncicd-plugin-activate/request"
)

// Production endpoint of the CI/CD API.
const (
	DefaultScheme = "https"
	DefaultDomain = "service-now.com"
	pluginPath    = "/api/sn_cicd/plugin/"
)

// Builder turns an instance name, credentials and plugin id into the
// activation URL and the request options shared by every call.
type Builder struct {
	instance string
	scheme   string
	domain   string
	baseURL  string
	options  client.Options
}

// BuilderOption customises the endpoint a Builder targets.
type BuilderOption func(*Builder)

// WithEndpoint overrides scheme and domain; empty values keep the defaults.
func WithEndpoint(scheme, domain string) BuilderOption {
	return func(b *Builder) {
		if scheme != "" {
			b.scheme = scheme
		}
		if domain != "" {
			b.domain = domain
		}
	}
}

// WithBaseURL sends every request to baseURL instead of
// {scheme}://{instance}.{domain}. The instance is still required.
func WithBaseURL(baseURL string) BuilderOption {
	return func(b *Builder) {
		b.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewBuilder creates a Builder. Credentials are copied and never change.
func NewBuilder(instance string, creds Credentials, opts ...BuilderOption) *Builder {
	b := &Builder{
		instance: instance,
		scheme:   DefaultScheme,
		domain:   DefaultDomain,
		options: client.Options{
			Username: creds.Username,
			Password: creds.Password,
			Headers: map[string]string{
				request.HeaderAccept:    "application/json",
				request.HeaderUserAgent: request.UserAgent,
			},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBuilderFromConfig creates a Builder for cfg.
func NewBuilderFromConfig(cfg ActivationConfig, opts ...BuilderOption) *Builder {
	return NewBuilder(cfg.Instance, cfg.Credentials, opts...)
}

// BuildActivationURL returns
// https://{instance}.service-now.com/api/sn_cicd/plugin/{encoded id}/activate.
// An empty instance or plugin id is INCORRECT_CONFIG.
func (b *Builder) BuildActivationURL(pluginID string) (string, error) {
	if b.instance == "" || pluginID == "" {
		return "", apperrors.NewIncorrectConfig()
	}
	return b.base() + pluginPath + EncodeURIComponent(pluginID) + "/activate", nil
}

func (b *Builder) base() string {
	if b.baseURL != "" {
		return b.baseURL
	}
	return b.scheme + "://" + b.instance + "." + b.domain
}

// RequestOptions returns the shared request configuration. Each call gets
// its own copy of the headers.
func (b *Builder) RequestOptions() client.Options {
	headers := make(map[string]string, len(b.options.Headers))
	for k, v := range b.options.Headers {
		headers[k] = v
	}
	return client.Options{
		Username: b.options.Username,
		Password: b.options.Password,
		Headers:  headers,
	}
}

// Instance returns the instance name the builder targets.
func (b *Builder) Instance() string {
	return b.instance
}

// unreserved lists the bytes encodeURIComponent leaves alone besides
// ASCII letters and digits.
const unreserved = "-_.!~*'()"

// EncodeURIComponent percent-encodes s like JavaScript's encodeURIComponent:
// every byte of the UTF-8 encoding outside A-Z a-z 0-9 - _ . ! ~ * ' ( )
// becomes %XX with upper-case hex.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0F])
	}
	return sb.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	default:
		return strings.IndexByte(unreserved, c) >= 0
	}
}

// DefaultStatusMessages is the fixed HTTP status table of the CI/CD API.
func DefaultStatusMessages() *apperrors.Registry {
	return apperrors.NewRegistry(map[int]string{
		http.StatusUnauthorized:        "The user credentials are incorrect.",
		http.StatusForbidden:           "Forbidden. The user is not an admin or does not have the CICD role.",
		http.StatusNotFound:            "Not found. The requested item was not found.",
		http.StatusMethodNotAllowed:    "Invalid method. The functionality is disabled.",
		http.StatusConflict:            "Conflict. The requested item is not unique.",
		http.StatusInternalServerError: "Internal server error. An unexpected error occurred while processing the request.",
	})
}
