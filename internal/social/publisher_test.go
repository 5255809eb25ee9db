package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishPost(t *testing.T) {
	var gotAuth, gotText, gotLink string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotText = r.PostFormValue("text")
		gotLink = r.PostFormValue("link")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"post-42"}`))
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "token-123")
	ref, err := p.PublishPost(context.Background(), "Launch day!", "https://example.com/en/launch")
	if err != nil {
		t.Fatalf("publish post: %v", err)
	}
	if ref != "post-42" {
		t.Errorf("ref = %q, want post-42", ref)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotText != "Launch day!" || gotLink != "https://example.com/en/launch" {
		t.Errorf("form = (%q, %q)", gotText, gotLink)
	}
}

func TestPublishPostErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "token")
	if _, err := p.PublishPost(context.Background(), "x", "y"); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestPublishPostMissingID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "token")
	if _, err := p.PublishPost(context.Background(), "x", "y"); err == nil {
		t.Error("expected error when the network returns no post id")
	}
}

func TestPublishPostMisconfigured(t *testing.T) {
	p := NewPublisher("", "")
	if _, err := p.PublishPost(context.Background(), "x", "y"); err == nil {
		t.Error("expected error without base URL and token")
	}
}
