package testing

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/leeforge/sncicd-plugin-activate/json"
)

// Route patterns served by FakeInstance.
const (
	ActivatePath = "/api/sn_cicd/plugin/{pluginID}/activate"
	ProgressPath = "/api/sn_cicd/progress/{progressID}"
)

// Job is one scripted job status. Status is sent as given, so a string
// ("1") and a number (1) can both be exercised.
type Job struct {
	Status          any
	Label           string
	Message         string
	Detail          string
	Error           string
	Percent         float64
	RollbackVersion string
	// NoLink omits links.progress from the result.
	NoLink bool
}

// Reply is a raw scripted HTTP reply. Body is JSON-encoded unless RawBody
// is set.
type Reply struct {
	StatusCode int
	Body       any
	RawBody    string
}

// RecordedRequest is what the fake saw for one call.
type RecordedRequest struct {
	Method     string
	RequestURI string
	PluginID   string
	Username   string
	Password   string
	HasAuth    bool
	Header     http.Header
	Body       string
}

// FakeInstance is an httptest server speaking the CI/CD plugin API.
// Activation returns the scripted activation reply; every progress GET pops
// the next queued reply.
type FakeInstance struct {
	server *httptest.Server

	mu          sync.Mutex
	activate    *Reply
	progress    []Reply
	requests    []RecordedRequest
	nextID      int
	authUser    string
	authPass    string
	enforceAuth bool
}

// NewFakeInstance starts a fake instance that is closed with the test.
func NewFakeInstance(t testing.TB) *FakeInstance {
	t.Helper()

	f := &FakeInstance{}
	r := chi.NewRouter()
	r.Use(f.record)
	r.Post(ActivatePath, f.handleActivate)
	r.Get(ProgressPath, f.handleProgress)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, ErrorReply(http.StatusNotFound, "no route "+r.URL.Path, ""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, ErrorReply(http.StatusMethodNotAllowed, "", ""))
	})

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL of the fake.
func (f *FakeInstance) URL() string {
	return f.server.URL
}

// Close shuts the server down; later calls fail with a transport error.
func (f *FakeInstance) Close() {
	f.server.Close()
}

// RequireAuth makes every call without these Basic credentials a 401.
func (f *FakeInstance) RequireAuth(username, password string) *FakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authUser, f.authPass, f.enforceAuth = username, password, true
	return f
}

// OnActivate scripts the activation response as a 200 carrying job.
func (f *FakeInstance) OnActivate(job Job) *FakeInstance {
	reply := f.jobReply(job)
	return f.OnActivateReply(reply)
}

// OnActivateReply scripts a raw activation response.
func (f *FakeInstance) OnActivateReply(reply Reply) *FakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activate = &reply
	return f
}

// QueueProgress appends 200 replies carrying jobs to the progress queue.
func (f *FakeInstance) QueueProgress(jobs ...Job) *FakeInstance {
	for _, job := range jobs {
		f.QueueProgressReply(f.jobReply(job))
	}
	return f
}

// QueueProgressReply appends raw replies to the progress queue.
func (f *FakeInstance) QueueProgressReply(replies ...Reply) *FakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, replies...)
	return f
}

// Requests returns every recorded request in arrival order.
func (f *FakeInstance) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CountMethod returns how many requests used method.
func (f *FakeInstance) CountMethod(method string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// ProgressURL returns the link for progress id.
func (f *FakeInstance) ProgressURL(id string) string {
	return f.server.URL + "/api/sn_cicd/progress/" + url.PathEscape(id)
}

// Result builds the {"result": ...} envelope for job with the given link.
func Result(job Job, progressID, progressURL string) map[string]any {
	result := map[string]any{
		"status":           job.Status,
		"status_label":     job.Label,
		"status_message":   job.Message,
		"status_detail":    job.Detail,
		"error":            job.Error,
		"percent_complete": job.Percent,
		"rollback_version": job.RollbackVersion,
	}
	if !job.NoLink {
		result["links"] = map[string]any{
			"progress": map[string]any{
				"id":  progressID,
				"url": progressURL,
			},
		}
	}
	return map[string]any{"result": result}
}

// ErrorReply builds an error reply whose body carries result.error and
// result.status_message.
func ErrorReply(statusCode int, errText, statusMessage string) Reply {
	return Reply{
		StatusCode: statusCode,
		Body: map[string]any{
			"result": map[string]any{
				"error":          errText,
				"status_message": statusMessage,
			},
		},
	}
}

func (f *FakeInstance) jobReply(job Job) Reply {
	f.mu.Lock()
	f.nextID++
	id := "job" + strconv.Itoa(f.nextID)
	f.mu.Unlock()

	return Reply{StatusCode: http.StatusOK, Body: Result(job, id, f.ProgressURL(id))}
}

func (f *FakeInstance) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, ok := r.BasicAuth()

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:     r.Method,
			RequestURI: r.RequestURI,
			Username:   user,
			Password:   pass,
			HasAuth:    ok,
			Header:     r.Header.Clone(),
			Body:       string(body),
		})
		denied := f.enforceAuth && (!ok || user != f.authUser || pass != f.authPass)
		f.mu.Unlock()

		if denied {
			writeReply(w, ErrorReply(http.StatusUnauthorized, "User Not Authenticated", "Required to provide Auth information"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeInstance) handleActivate(w http.ResponseWriter, r *http.Request) {
	pluginID, err := url.PathUnescape(chi.URLParam(r, "pluginID"))
	if err != nil {
		pluginID = chi.URLParam(r, "pluginID")
	}

	f.mu.Lock()
	f.requests[len(f.requests)-1].PluginID = pluginID
	reply := f.activate
	f.mu.Unlock()

	if reply == nil {
		writeReply(w, ErrorReply(http.StatusNotFound, "no activation scripted", ""))
		return
	}
	writeReply(w, *reply)
}

func (f *FakeInstance) handleProgress(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if len(f.progress) == 0 {
		f.mu.Unlock()
		writeReply(w, ErrorReply(http.StatusInternalServerError, "progress queue exhausted", ""))
		return
	}
	reply := f.progress[0]
	f.progress = f.progress[1:]
	f.mu.Unlock()

	writeReply(w, reply)
}

func writeReply(w http.ResponseWriter, reply Reply) {
	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	body := []byte(reply.RawBody)
	if reply.RawBody == "" && reply.Body != nil {
		data, err := json.Marshal(reply.Body)
		if err != nil {
			panic(fmt.Sprintf("fake instance: encode reply: %v", err))
		}
		body = data
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}
