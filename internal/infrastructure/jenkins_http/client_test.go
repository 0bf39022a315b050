package jenkins_http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

func TestSend_BasicAuthAndAccept(t *testing.T) {
	var auth, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"nextBuildNumber":3}`))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{Username: "bot", Password: "pw"}, 1, time.Second)
	p, err := c.Send(context.Background(), http.MethodGet, srv.URL+"/job/x/api/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("bot:pw"))
	if auth != want {
		t.Errorf("got Authorization %q, want %q", auth, want)
	}
	if accept != "application/json" {
		t.Errorf("got Accept %q", accept)
	}

	var info domain.JobInfo
	if err := p.Decode(&info); err != nil || info.NextBuildNumber == nil || *info.NextBuildNumber != 3 {
		t.Errorf("unexpected payload %s (%v)", p, err)
	}
}

func TestSend_AnonymousSendsNoAuthorization(t *testing.T) {
	seen := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 1, time.Second)
	if _, err := c.Send(context.Background(), http.MethodGet, srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("Authorization header sent for \":\" credential")
	}
}

func TestSend_RetriesUpToLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 3, time.Second)
	_, err := c.Send(context.Background(), http.MethodPost, srv.URL)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestSend_RecoversWithinLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"building":false,"result":"SUCCESS"}`))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 5, time.Second)
	p, err := c.Send(context.Background(), http.MethodGet, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected payload")
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestSend_EmptyBodyIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 5, time.Second)
	p, err := c.Send(context.Background(), http.MethodPost, srv.URL)
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", p, err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestSend_ParseErrorIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`<html>login</html>`))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 5, time.Second)
	_, err := c.Send(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestSend_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(zap.NewNop(), domain.Credential{}, 3, time.Second)
	if _, err := c.Send(ctx, http.MethodGet, srv.URL); !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	f := Factory(zap.NewNop(), 0)
	c, ok := f(domain.Credential{Username: "u", Password: "p"}, 2).(*Client)
	if !ok {
		t.Fatal("factory did not return a *Client")
	}
	if c.retryLimit != 2 || c.cred.Username != "u" {
		t.Errorf("unexpected client %+v", c)
	}
}

func TestSend_WhitespaceBodyIsParseError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), domain.Credential{}, 5, time.Second)
	p, err := c.Send(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, domain.ErrParse) || p != nil {
		t.Fatalf("expected ErrParse, got (%v, %v)", p, err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}
