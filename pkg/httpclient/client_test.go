package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_BasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{Username: "login", Password: "secret"})

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "login" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q, want login/secret", gotUser, gotPass)
	}
	if !out.OK {
		t.Errorf("response not decoded")
	}
}

func TestClient_PostJSONEncodesBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{})
	if err := c.PostJSON(context.Background(), srv.URL, map[string]string{"q": "running shoes"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotBody, `"running shoes"`) {
		t.Errorf("body = %q, want the encoded payload", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{})
	err := c.GetJSON(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatalf("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{Timeout: 20 * time.Millisecond})
	if err := c.GetJSON(context.Background(), srv.URL, nil); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestClient_NilContext(t *testing.T) {
	c := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	//nolint:staticcheck // exercising the nil guard
	if _, err := c.Do(nil, req); err == nil {
		t.Fatalf("expected error for nil context")
	}
}
