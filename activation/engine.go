package activation

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/sncicd-plugin-activate/client"
	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
	"github.com/leeforge/sncicd-plugin-activate/json"
	"github.com/leeforge/sncicd-plugin-activate/logging"
	"github.com/leeforge/sncicd-plugin-activate/metrics"
)

// DefaultPollInterval is the fixed delay between two status checks.
const DefaultPollInterval = 3000 * time.Millisecond

// Outcomes recorded in metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Doer performs one HTTP exchange. *client.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, method, url string, body any, opts client.Options) (*client.Response, error)
}

// Sleeper waits between polls. It must return early with ctx.Err() when
// ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleep waits for d or until ctx is done.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EngineOptions wires an Engine. Builder and Doer are required. The engine
// logs through the logger stored in the Activate context.
type EngineOptions struct {
	Doer     Doer
	Builder  *Builder
	Progress io.Writer
	Metrics  *metrics.Collector
	Sleeper  Sleeper
	// Timeout bounds one Activate call; zero polls until a terminal status.
	Timeout time.Duration
}

// Engine activates one plugin and polls the job until it ends.
type Engine struct {
	doer     Doer
	builder  *Builder
	out      io.Writer
	metrics  *metrics.Collector
	sleeper  Sleeper
	interval time.Duration
	timeout  time.Duration
	messages *apperrors.Registry
}

// NewEngine creates an Engine, filling unset options with defaults.
func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		doer:     opts.Doer,
		builder:  opts.Builder,
		out:      opts.Progress,
		metrics:  opts.Metrics,
		sleeper:  opts.Sleeper,
		interval: DefaultPollInterval,
		timeout:  opts.Timeout,
		messages: DefaultStatusMessages(),
	}
	if e.out == nil {
		e.out = io.Discard
	}
	if e.sleeper == nil {
		e.sleeper = SleeperFunc(ContextSleep)
	}
	return e
}

// Activate requests activation of pluginID and polls the returned progress
// link until the job is Successful (nil), Failed, Canceled or a request
// fails. Exactly one request is in flight at a time.
func (e *Engine) Activate(ctx context.Context, pluginID string) (err error) {
	start := time.Now()
	log := logging.WithContext(logging.FromContext(ctx).Named("engine"), ctx).With(
		zap.String("plugin_id", pluginID),
		zap.String("instance", e.builder.Instance()),
	)
	defer func() {
		e.metrics.RecordActivation(outcome(err), time.Since(start))
	}()

	if pluginID == "" {
		return apperrors.NewMissingPluginID()
	}

	activateURL, err := e.builder.BuildActivationURL(pluginID)
	if err != nil {
		return err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log.Info("activating plugin", zap.String("url", activateURL))
	status, err := e.send(ctx, http.MethodPost, activateURL, map[string]any{})
	if err != nil {
		return err
	}

	for polls := 0; ; polls++ {
		done, err := e.evaluate(status, log)
		if done || err != nil {
			log.Info("activation finished",
				zap.Int("polls", polls),
				zap.Stringer("status", status.Status),
				zap.Duration("elapsed", time.Since(start)),
			)
			return err
		}

		next := status.ProgressURL()
		if next == "" {
			return apperrors.NewProtocol("progress link is missing").
				WithDetail("status", int(status.Status))
		}

		if err := e.sleeper.Sleep(ctx, e.interval); err != nil {
			return e.contextError(err)
		}

		if status, err = e.send(ctx, http.MethodGet, next, nil); err != nil {
			return err
		}
	}
}

// evaluate applies one JobStatus to the state machine. done is true for a
// terminal status; err is set when the job did not succeed.
func (e *Engine) evaluate(status *JobStatus, log logging.Logger) (done bool, err error) {
	log.Debug("job status",
		zap.Int("status", int(status.Status)),
		zap.String("label", status.StatusLabel),
		zap.String("percent", status.PercentComplete.String()),
	)

	if !status.HasStatus() {
		return true, apperrors.NewProtocol("job status is missing")
	}
	e.metrics.RecordPoll(status.Status.String())

	switch status.Status {
	case Pending:
		e.progress(status.StatusLabel)
	case Running:
		e.progress(status.StatusLabel + ": " + status.PercentComplete.String() + "%")
	case Successful:
		e.progress(status.StatusLabel + ": " + status.PercentComplete.String() + "%")
		e.progress(status.StatusMessage)
		e.progress(status.StatusDetail)
		return true, nil
	case Failed:
		return true, apperrors.NewJobFailed(failureMessage(status)).
			WithDetail("rollback_version", status.RollbackVersion)
	case Canceled:
		return true, apperrors.NewJobCanceled()
	}

	if status.Status.Terminal() {
		return true, apperrors.NewUnknownStatus(int(status.Status))
	}
	return false, nil
}

func failureMessage(status *JobStatus) string {
	for _, msg := range []string{status.Error, status.StatusMessage, status.StatusLabel} {
		if msg != "" {
			return msg
		}
	}
	return Failed.String()
}

func (e *Engine) progress(line string) {
	_, _ = fmt.Fprintln(e.out, line)
}

// send performs one call and decodes the job status, translating every
// failure into an *errors.AppError.
func (e *Engine) send(ctx context.Context, method, url string, body any) (*JobStatus, error) {
	resp, err := e.doer.Do(ctx, method, url, body, e.builder.RequestOptions())
	if err != nil {
		return nil, e.translate(ctx, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeProtocol, "invalid job status response: "+err.Error()).
			WithCode(apperrors.CodeProtocol).
			WithDetail("http_status", resp.StatusCode)
	}
	return &env.Result, nil
}

// translate maps a failed call to the error surfaced to the workflow:
// the fixed status table first, then the body's error or status_message.
func (e *Engine) translate(ctx context.Context, err error) error {
	var statusErr *client.StatusError
	if stderrors.As(err, &statusErr) {
		if known, ok := e.messages.Lookup(statusErr.StatusCode); ok {
			return known
		}
		return apperrors.NewHTTPStatus(statusErr.StatusCode, bodyMessage(statusErr))
	}

	if ctx.Err() != nil {
		return e.contextError(ctx.Err())
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewTransport(err)
}

func bodyMessage(statusErr *client.StatusError) string {
	var env struct {
		Result struct {
			Error         string `json:"error"`
			StatusMessage string `json:"status_message"`
		} `json:"result"`
	}
	if json.Unmarshal(statusErr.Body, &env) == nil {
		if env.Result.Error != "" {
			return env.Result.Error
		}
		if env.Result.StatusMessage != "" {
			return env.Result.StatusMessage
		}
	}
	return "Request failed with status code " + strconv.Itoa(statusErr.StatusCode)
}

func (e *Engine) contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) && e.timeout > 0 {
		return apperrors.NewTransport(fmt.Errorf("activation did not finish within %s: %w", e.timeout, err))
	}
	return apperrors.NewTransport(err)
}

func outcome(err error) string {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeJobFailed:
		return OutcomeFailed
	case apperrors.ErrorTypeJobCanceled:
		return OutcomeCanceled
	}
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
