package activation

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leeforge/sncicd-plugin-activate/json"
)

// StatusCode is the ordered job state reported by the CI/CD API.
type StatusCode int

const (
	Pending    StatusCode = 0
	Running    StatusCode = 1
	Successful StatusCode = 2
	Failed     StatusCode = 3
	Canceled   StatusCode = 4
)

func (s StatusCode) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Successful:
		return "Successful"
	case Failed:
		return "Failed"
	case Canceled:
		return "Canceled"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether polling stops at s. Every code below Successful
// keeps the job polling, including ones the API may add later.
func (s StatusCode) Terminal() bool {
	return s >= Successful
}

// UnmarshalJSON accepts the status as a JSON string ("2") or number (2).
// null leaves the value untouched.
func (s *StatusCode) UnmarshalJSON(data []byte) error {
	n, ok, err := parseNumeric(data)
	if err != nil {
		return fmt.Errorf("job status: %w", err)
	}
	if !ok {
		return nil
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return fmt.Errorf("job status: %v is not an integer", n)
	}
	*s = StatusCode(n)
	return nil
}

// Percent is percent_complete, accepted as a JSON number or numeric string.
type Percent float64

func (p *Percent) UnmarshalJSON(data []byte) error {
	n, ok, err := parseNumeric(data)
	if err != nil {
		return fmt.Errorf("percent_complete: %w", err)
	}
	if ok {
		*p = Percent(n)
	}
	return nil
}

// String renders the value the shortest way that round-trips: 50, 33.5.
func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// parseNumeric decodes a JSON number or a string holding one. ok is false
// for null. A blank string reads as 0.
func parseNumeric(data []byte) (n float64, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false, nil
	}

	raw := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return 0, false, fmt.Errorf("invalid string %s", raw)
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			return 0, true, nil
		}
	}

	n, err = strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, fmt.Errorf("%q is not numeric", raw)
	}
	return n, true, nil
}

// Link is a server supplied resource reference.
type Link struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Links struct {
	Progress Link `json:"progress"`
}

// JobStatus is one observation of the activation job.
type JobStatus struct {
	Status          StatusCode `json:"status"`
	StatusLabel     string     `json:"status_label"`
	StatusMessage   string     `json:"status_message"`
	StatusDetail    string     `json:"status_detail"`
	Error           string     `json:"error"`
	PercentComplete Percent    `json:"percent_complete"`
	RollbackVersion string     `json:"rollback_version"`
	Links           Links      `json:"links"`

	hasStatus bool
}

// jobStatusFields is JobStatus without its UnmarshalJSON.
type jobStatusFields JobStatus

// UnmarshalJSON decodes the job status and notes whether the reply carried
// a status at all. A null status counts as absent.
func (j *JobStatus) UnmarshalJSON(data []byte) error {
	var fields jobStatusFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var presence struct {
		Status *StatusCode `json:"status"`
	}
	if err := json.Unmarshal(data, &presence); err != nil {
		return err
	}

	*j = JobStatus(fields)
	j.hasStatus = presence.Status != nil
	return nil
}

// HasStatus reports whether the reply included a status.
func (j *JobStatus) HasStatus() bool {
	return j.hasStatus
}

// ProgressURL is the link to poll next, used verbatim.
func (j *JobStatus) ProgressURL() string {
	return j.Links.Progress.URL
}

// envelope is the body of every CI/CD API response.
type envelope struct {
	Result JobStatus `json:"result"`
}

// Credentials authenticate every call of one activation.
type Credentials struct {
	Username string
	Password string
}

// ActivationConfig fully determines the target URL and authentication.
type ActivationConfig struct {
	Instance    string
	PluginID    string
	Credentials Credentials
}
