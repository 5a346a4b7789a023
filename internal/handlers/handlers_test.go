package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petermazzocco/go-microblog-api/internal/blob"
	"github.com/petermazzocco/go-microblog-api/internal/metrics"
	"github.com/petermazzocco/go-microblog-api/internal/service"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	logs    *test.Hook
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	blobs, err := blob.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.New(st, blobs, log, m)

	h := New(svc, log, Options{
		RateLimit:      1000,
		MaxUploadBytes: 1 << 20,
		Metrics:        m,
		Gatherer:       reg,
	})
	return &testServer{t: t, handler: h.Routes(), logs: hook}
}

func (s *testServer) do(method, path, apiKey string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if apiKey != "" {
		req.Header.Set("api-key", apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *testServer) register(name, key string) int {
	s.t.Helper()
	q := url.Values{"name": {name}, "api_key": {key}}
	rec, body := s.do(http.MethodPost, "/api/users/me?"+q.Encode(), "", nil, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	user := body["user"].(map[string]any)
	return int(user["id"].(float64))
}

func (s *testServer) tweet(key, content string, mediaIDs ...int) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	payload, err := json.Marshal(map[string]any{"tweet_data": content, "tweet_media_ids": mediaIDs})
	require.NoError(s.t, err)
	return s.do(http.MethodPost, "/api/tweets", key, bytes.NewReader(payload), "application/json")
}

func (s *testServer) upload(filename, content string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	return s.do(http.MethodPost, "/api/medias", "", &buf, mw.FormDataContentType())
}

func names(list any) []string {
	var out []string
	for _, item := range list.([]any) {
		out = append(out, item.(map[string]any)["name"].(string))
	}
	return out
}

func TestFollowScenario(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice", "k1")
	bob := s.register("bob", "k2")

	rec, body := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/follow", bob), "k1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	_, body = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", alice), "", nil, "")
	user := body["user"].(map[string]any)
	assert.Equal(t, []string{"bob"}, names(user["following"]))
	assert.Empty(t, user["followers"])

	_, body = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bob), "", nil, "")
	user = body["user"].(map[string]any)
	assert.Equal(t, []string{"alice"}, names(user["followers"]))

	rec, body = s.do(http.MethodGet, "/api/users/me", "k1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	user = body["user"].(map[string]any)
	assert.Equal(t, float64(alice), user["id"])
	assert.Equal(t, "alice", user["name"])
}

func TestAuthFailures(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")

	rec, body := s.do(http.MethodGet, "/api/users/me", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["result"])

	rec, body = s.do(http.MethodGet, "/api/users/me", "super-secret-key", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "API key authentication failed", body["detail"])
	assert.NotContains(t, rec.Body.String(), "super-secret-key")

	rec, _ = s.tweet("", "hi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, entry := range s.logs.AllEntries() {
		line, _ := entry.String()
		assert.NotContains(t, line, "super-secret-key")
	}
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")

	rec, _ := s.do(http.MethodPost, "/api/users/me?name=bob&api_key=k1", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/users/me?name=bob", "", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	form := strings.NewReader(url.Values{"name": {"carol"}, "api_key": {"k3"}}.Encode())
	rec, _ = s.do(http.MethodPost, "/api/users/me", "", form, "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserErrors(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodGet, "/api/users/42", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["detail"])

	rec, _ = s.do(http.MethodGet, "/api/users/abc", "", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFollowErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")
	bob := s.register("bob", "k2")
	path := fmt.Sprintf("/api/users/%d/follow", bob)

	rec, _ := s.do(http.MethodPost, path, "k1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(http.MethodPost, path, "k1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You already subscribed", body["detail"])

	rec, _ = s.do(http.MethodDelete, path, "k1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(http.MethodDelete, path, "k1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You are not subscribed", body["detail"])

	rec, _ = s.do(http.MethodPost, "/api/users/999/follow", "k1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTweetLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")
	s.register("bob", "k2")

	rec, body := s.upload("cat.png", "meow")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mediaID := int(body["media_id"].(float64))

	rec, body = s.tweet("k1", "look", mediaID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tweetID := int(body["tweet_id"].(float64))

	_, body = s.do(http.MethodGet, "/api/tweets", "", nil, "")
	tweets := body["tweets"].([]any)
	require.Len(t, tweets, 1)
	tw := tweets[0].(map[string]any)
	assert.Equal(t, "look", tw["content"])
	assert.Len(t, tw["attachments"], 1)
	assert.Equal(t, "alice", tw["author"].(map[string]any)["name"])
	assert.Empty(t, tw["likes"])

	path := fmt.Sprintf("/api/tweets/%d", tweetID)
	rec, _ = s.do(http.MethodDelete, path, "k2", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = s.do(http.MethodDelete, path, "k1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodDelete, path, "k1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = s.do(http.MethodGet, "/api/tweets", "", nil, "")
	assert.Empty(t, body["tweets"])
}

func TestCreateTweetUnknownMedia(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")

	rec, body := s.tweet("k1", "nope", 12345)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Media with id 12345 not found", body["detail"])

	_, body = s.do(http.MethodGet, "/api/tweets", "", nil, "")
	assert.Empty(t, body["tweets"])
}

func TestCreateTweetBadPayload(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")

	rec, _ := s.do(http.MethodPost, "/api/tweets", "k1", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/tweets", "k1", strings.NewReader(`{"tweet_media_ids":[]}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLikes(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "k1")
	_, body := s.tweet("k1", "like me")
	path := fmt.Sprintf("/api/tweets/%d/likes", int(body["tweet_id"].(float64)))

	rec, body := s.do(http.MethodPost, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	rec, body = s.do(http.MethodDelete, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	rec, body = s.do(http.MethodDelete, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["result"])
	assert.Equal(t, "Tweet has no likes to delete", body["message"])

	_, body = s.do(http.MethodGet, "/api/tweets", "", nil, "")
	tw := body["tweets"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(0), tw["like_count"])

	rec, _ = s.do(http.MethodPost, "/api/tweets/999/likes", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(http.MethodDelete, "/api/tweets/999/likes", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodPost, "/api/medias", "", strings.NewReader("raw"), "text/plain")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.upload("big.bin", strings.Repeat("x", 2<<20))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	s.do(http.MethodGet, "/api/tweets", "", nil, "")
	rec, _ = s.do(http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/api/tweets",status="200"} 1`)
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := New(nil, log, Options{})

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "Failed to write response", hook.LastEntry().Message)
	assert.Error(t, hook.LastEntry().Data[logrus.ErrorKey].(error))
}
