package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postboard/internal/app"
	"postboard/pkg/cache"
	"postboard/pkg/store"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	appCore, err := app.New(app.Config{
		TokenSecret: "test-secret",
		Store:       store.NewMemoryStore(),
		Cache:       cache.NewMemoryPostCache(time.Minute),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = appCore
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestEndToEndScenario(t *testing.T) {
	ts := newTestServer(t, Config{})

	// Signup succeeds once, conflicts on repeat.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["message"] != "User registered successfully" {
		t.Fatalf("unexpected signup message: %v", body)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate signup expected 400, got %d", resp.StatusCode)
	}

	// Login issues a bearer token.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}
	token, _ := body["access_token"].(string)
	if token == "" || body["token_type"] != "bearer" {
		t.Fatalf("unexpected login response: %v", body)
	}

	// Add a post.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/addpost", token, map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("addpost expected 200, got %d (%v)", resp.StatusCode, body)
	}
	postID, ok := body["postID"].(float64)
	if !ok || postID != 1 {
		t.Fatalf("unexpected postID: %v", body)
	}

	// List it back.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/getposts", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("getposts expected 200, got %d", resp.StatusCode)
	}
	posts, ok := body["posts"].([]any)
	if !ok || len(posts) != 1 {
		t.Fatalf("unexpected posts: %v", body)
	}
	first, _ := posts[0].(map[string]any)
	if first["id"] != float64(1) || first["text"] != "hello" {
		t.Fatalf("unexpected post: %v", first)
	}

	// Delete it; the second delete is a 404.
	deleteURL := fmt.Sprintf("%s/deletepost?postID=%d", ts.URL, int(postID))
	resp, _ = doJSON(t, http.MethodDelete, deleteURL, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deletepost expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, deleteURL, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second deletepost expected 404, got %d", resp.StatusCode)
	}
}

func TestAuthenticatedRoutesRejectBadTokens(t *testing.T) {
	ts := newTestServer(t, Config{})

	for _, tc := range []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
	} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+"/getposts", tc.token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s token expected 401, got %d", tc.name, resp.StatusCode)
		}
		resp, _ = doJSON(t, http.MethodPost, ts.URL+"/addpost", tc.token, map[string]string{"text": "x"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s token on addpost expected 401, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestDeletePostValidatesID(t *testing.T) {
	ts := newTestServer(t, Config{})
	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	_, body := doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	token, _ := body["access_token"].(string)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/deletepost?postID=abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad postID expected 400, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/deletepost", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing postID expected 400, got %d", resp.StatusCode)
	}
}

func TestMethodsAreEnforced(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/signup", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /signup expected 405, got %d", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	_, body := doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	token, _ := body["access_token"].(string)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/getposts", token, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /getposts expected 405, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected healthz response: %d %v", resp.StatusCode, body)
	}
}
