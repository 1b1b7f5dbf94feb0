package action

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// FailureSink receives the single message that fails the run.
type FailureSink interface {
	SetFailed(message string)
}

// ExitCodes reports the process exit code a sink settled on.
type ExitCodes interface {
	ExitCode() int
}

// WorkflowSink writes an ::error:: workflow command and records exit code 1.
type WorkflowSink struct {
	out      io.Writer
	mu       sync.Mutex
	exitCode int
}

// NewWorkflowSink writes workflow commands to out, normally stdout.
func NewWorkflowSink(out io.Writer) *WorkflowSink {
	return &WorkflowSink{out: out}
}

func (s *WorkflowSink) SetFailed(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exitCode = 1
	_, _ = fmt.Fprintf(s.out, "::error::%s\n", EscapeData(message))
}

func (s *WorkflowSink) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

var dataEscaper = strings.NewReplacer(
	"%", "%25",
	"\r", "%0D",
	"\n", "%0A",
)

// EscapeData escapes a workflow command message.
func EscapeData(s string) string {
	return dataEscaper.Replace(s)
}

// RecordingSink keeps failures in memory.
type RecordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *RecordingSink) SetFailed(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

// Messages returns the recorded failures in order.
func (s *RecordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *RecordingSink) ExitCode() int {
	if len(s.Messages()) > 0 {
		return 1
	}
	return 0
}

var (
	_ FailureSink = (*WorkflowSink)(nil)
	_ FailureSink = (*RecordingSink)(nil)
	_ ExitCodes   = (*WorkflowSink)(nil)
	_ ExitCodes   = (*RecordingSink)(nil)
)
