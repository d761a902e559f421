package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeAdmin struct {
	mu     sync.Mutex
	posted map[string][]byte
	auth   []string
}

func newFakeAdmin(t *testing.T) (*httptest.Server, *fakeAdmin) {
	t.Helper()
	fa := &fakeAdmin{posted: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fa.mu.Lock()
		defer fa.mu.Unlock()
		fa.auth = append(fa.auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/status":
			io.WriteString(w, `{"status":"online","version":"1.0.0"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/config":
			io.WriteString(w, `{"responses":{"hola":{"type":"text","message":"hi"}}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/lists":
			io.WriteString(w, `{}`)
		case r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			fa.posted[r.URL.Path] = body
			io.WriteString(w, `{"success":true}`)
		case r.URL.Path == "/send-demo":
			if r.URL.Query().Get("to") == "" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"missing to"}`)
				return
			}
			io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"unknown section: nope"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, fa
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatus(t *testing.T) {
	srv, fa := newFakeAdmin(t)

	out, err := run(t, "--addr", srv.URL, "--token", "tok", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "online"`)
	assert.Equal(t, []string{"Bearer tok"}, fa.auth)
}

func TestConfigShowYAML(t *testing.T) {
	srv, _ := newFakeAdmin(t)

	out, err := run(t, "--addr", srv.URL, "config", "show", "--yaml")
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &v))
	assert.Contains(t, v, "responses")
}

func TestConfigShowUnknownSection(t *testing.T) {
	srv, _ := newFakeAdmin(t)

	_, err := run(t, "--addr", srv.URL, "config", "show", "nope")
	assert.ErrorContains(t, err, "unknown section")
}

func TestConfigImportYAML(t *testing.T) {
	srv, fa := newFakeAdmin(t)
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
responses:
  precio:
    type: text
    message: Desde $10
listResponses:
  a: plain text
`), 0o644))

	_, err := run(t, "--addr", srv.URL, "config", "import", path)
	require.NoError(t, err)

	var posted map[string]any
	require.NoError(t, json.Unmarshal(fa.posted["/api/config"], &posted))
	assert.Equal(t, "plain text", posted["listResponses"].(map[string]any)["a"])
}

func TestConfigImportRejectsInvalid(t *testing.T) {
	srv, fa := newFakeAdmin(t)
	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listResponses": {"x": {"type": "text_with_url", "message": "m"}}}`), 0o644))

	_, err := run(t, "--addr", srv.URL, "config", "import", path)
	assert.Error(t, err)
	assert.Empty(t, fa.posted)
}

func TestConfigExportToFile(t *testing.T) {
	srv, _ := newFakeAdmin(t)
	path := filepath.Join(t.TempDir(), "out.yml")

	_, err := run(t, "--addr", srv.URL, "config", "export", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "responses:")
}

func TestConfigResetNeedsConfirmation(t *testing.T) {
	srv, fa := newFakeAdmin(t)

	_, err := run(t, "--addr", srv.URL, "config", "reset")
	assert.Error(t, err)
	assert.Empty(t, fa.posted)

	_, err = run(t, "--addr", srv.URL, "config", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, fa.posted, "/api/reset")
}

func TestSendDemo(t *testing.T) {
	srv, _ := newFakeAdmin(t)

	_, err := run(t, "--addr", srv.URL, "send-demo", "5411")
	require.NoError(t, err)
}

func TestAPIErrorsSurface(t *testing.T) {
	srv, _ := newFakeAdmin(t)

	c := newAPIClient(srv.URL, "")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err := c.get(ctx, "/api/other")
	assert.ErrorContains(t, err, "unknown section: nope")
	assert.ErrorContains(t, err, "404")
}
