package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojasmm/wamenu/internal/menu"
	"github.com/lojasmm/wamenu/internal/store"
	"github.com/lojasmm/wamenu/internal/whatsapp"
)

type fakeDemo struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (d *fakeDemo) SendDefaultList(_ context.Context, to string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.to = append(d.to, to)
	return d.err
}

func (d *fakeDemo) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.to...)
}

type env struct {
	srv     *httptest.Server
	store   *store.BoltStore
	demo    *fakeDemo
	senders *whatsapp.SenderRef
}

func setup(t *testing.T, token string) *env {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	e := &env{store: s, demo: &fakeDemo{}, senders: whatsapp.NewSenderRef(nil)}
	h := NewHandler(s, e.demo, e.senders, func(id, tok string) whatsapp.Sender {
		return whatsapp.NewClient(id, tok)
	}, token, log)

	r := chi.NewRouter()
	h.Routes(r)
	e.srv = httptest.NewServer(r)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStatus(t *testing.T) {
	e := setup(t, "")
	resp, body := e.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "online", got["status"])
	assert.Equal(t, Version, got["version"])
	assert.NotEmpty(t, got["timestamp"])
}

func TestInfoReportsSenderState(t *testing.T) {
	e := setup(t, "")
	_, body := e.do(t, http.MethodGet, "/", "")
	assert.Contains(t, string(body), "Error de configuración")
	assert.NotContains(t, string(body), "phone_number_id")

	e.senders.Swap(whatsapp.NewClient("1", "tok"))
	_, body = e.do(t, http.MethodGet, "/", "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Contains(t, got["status"], "Conectado")
	assert.Equal(t, "1", got["phone_number_id"])
}

func TestGetConfig_SeedsDefaults(t *testing.T) {
	e := setup(t, "")
	resp, body := e.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tree menu.Tree
	require.NoError(t, json.Unmarshal(body, &tree))
	assert.Contains(t, tree.Responses, "hola")
	assert.Contains(t, tree.Lists, menu.DefaultListID)
	assert.IsType(t, menu.ButtonsReply{}, tree.ListResponses["contactar_humano"])
}

func TestSection_RoundTrip(t *testing.T) {
	e := setup(t, "")

	resp, _ := e.do(t, http.MethodPost, "/api/responses", `{"Precio": {"type": "text", "message": "Desde $10"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/responses", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]menu.Command
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, map[string]menu.Command{"precio": {Type: "text", Message: "Desde $10"}}, got)
}

func TestSection_Unknown(t *testing.T) {
	e := setup(t, "")

	resp, _ := e.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/nope", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSection_InvalidRejected(t *testing.T) {
	e := setup(t, "")

	tooMany := `{"x": {"type": "text_with_buttons", "message": "m", "buttons": [
		{"id": "1", "title": "a"}, {"id": "2", "title": "b"}, {"id": "3", "title": "c"}, {"id": "4", "title": "d"}]}}`
	resp, _ := e.do(t, http.MethodPost, "/api/listResponses", tooMany)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/lists", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	tree, err := e.store.Tree()
	require.NoError(t, err)
	assert.Contains(t, tree.ListResponses, "contactar_humano", "stored config must be untouched")
	assert.NotContains(t, tree.ListResponses, "x")
}

func TestSaveConfig(t *testing.T) {
	e := setup(t, "")

	body := `{"responses": {"hola": {"type": "text", "message": "buenas"}}, "lists": {}, "listResponses": {"a": "plain"}}`
	resp, _ := e.do(t, http.MethodPost, "/api/config", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tree, err := e.store.Tree()
	require.NoError(t, err)
	assert.Equal(t, "buenas", tree.Responses["hola"].Message)
	assert.Equal(t, menu.TextReply{ReplyBase: menu.ReplyBase{Message: "plain"}}, tree.ListResponses["a"])
}

func TestReset(t *testing.T) {
	e := setup(t, "")
	e.do(t, http.MethodPost, "/api/responses", `{}`)

	resp, body := e.do(t, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Success bool      `json:"success"`
		Config  menu.Tree `json:"config"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Success)
	assert.Contains(t, got.Config.Responses, "hola")
}

func TestAnalytics(t *testing.T) {
	e := setup(t, "")
	require.NoError(t, e.store.IncrementMessages(3))

	resp, body := e.do(t, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st menu.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 3, st.TotalMessages)

	resp, _ = e.do(t, http.MethodPost, "/api/analytics", `{"totalMessages": 10, "uniqueUsers": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st, err := e.store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 10, st.TotalMessages)
}

func TestCredentials_SwapsSender(t *testing.T) {
	e := setup(t, "")
	require.Nil(t, e.senders.Sender())

	resp, _ := e.do(t, http.MethodPut, "/api/credentials", `{"phoneNumberId": "999", "accessToken": "new"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	client, ok := e.senders.Sender().(*whatsapp.Client)
	require.True(t, ok)
	assert.Equal(t, "999", client.PhoneNumberID())

	creds, err := e.store.Credentials()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "new", creds.AccessToken)

	resp, _ = e.do(t, http.MethodPut, "/api/credentials", `{"phoneNumberId": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendDemo(t *testing.T) {
	e := setup(t, "")

	resp, _ := e.do(t, http.MethodGet, "/send-demo", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/send-demo?to=5411", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"5411"}, e.demo.sent())

	e.demo.mu.Lock()
	e.demo.err = errors.New("boom")
	e.demo.mu.Unlock()
	resp, _ = e.do(t, http.MethodGet, "/send-demo?to=5411", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAdminToken(t *testing.T) {
	e := setup(t, "s3cret")

	resp, _ := e.do(t, http.MethodGet, "/api/config", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/config", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/config", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
