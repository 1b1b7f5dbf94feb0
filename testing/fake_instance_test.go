package testing

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/sncicd-plugin-activate/json"
)

func decodeResult(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env["result"]
}

func TestFakeInstanceScriptsActivationAndProgress(t *testing.T) {
	f := NewFakeInstance(t).
		OnActivate(Job{Status: "0", Label: "Pending"}).
		QueueProgress(Job{Status: 2, Label: "Success", NoLink: true})

	resp, err := http.Post(f.URL()+"/api/sn_cicd/plugin/com.snc%2Fx/activate", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeResult(t, resp)
	assert.Equal(t, "0", result["status"])
	links := result["links"].(map[string]any)["progress"].(map[string]any)
	progressURL := links["url"].(string)
	assert.True(t, strings.HasPrefix(progressURL, f.URL()))

	resp, err = http.Get(progressURL)
	require.NoError(t, err)
	result = decodeResult(t, resp)
	assert.Equal(t, float64(2), result["status"])
	assert.NotContains(t, result, "links")

	reqs := f.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "com.snc/x", reqs[0].PluginID)
	assert.Equal(t, "/api/sn_cicd/plugin/com.snc%2Fx/activate", reqs[0].RequestURI)
	assert.Equal(t, "{}", reqs[0].Body)
	assert.Equal(t, 1, f.CountMethod(http.MethodGet))
}

func TestFakeInstanceExhaustedQueue(t *testing.T) {
	f := NewFakeInstance(t)

	resp, err := http.Get(f.ProgressURL("nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestFakeInstanceRequireAuth(t *testing.T) {
	f := NewFakeInstance(t).
		RequireAuth("admin", "secret").
		OnActivate(Job{Status: "2"})

	resp, err := http.Post(f.URL()+"/api/sn_cicd/plugin/p/activate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, f.URL()+"/api/sn_cicd/plugin/p/activate", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFakeInstanceRawReply(t *testing.T) {
	f := NewFakeInstance(t).OnActivateReply(Reply{StatusCode: http.StatusBadGateway, RawBody: "Bad Gateway"})

	resp, err := http.Post(f.URL()+"/api/sn_cicd/plugin/p/activate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Bad Gateway", string(body))
}
