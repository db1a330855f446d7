package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/gearsync/optimizer"
)

func testPayload() optimizer.Payload {
	return optimizer.Payload{{Name: "Fire Build", IDs: []int{101, 202, 303, 404, 505, 606}}}
}

func TestWebhook_SinglePost(t *testing.T) {
	var calls atomic.Int32
	var gotBody, gotType, gotMethod string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer ts.Close()

	if err := NewWebhook(ts.URL).Send(context.Background(), testPayload()); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method: got %s", gotMethod)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type: got %q", gotType)
	}
	if want := `[{"Fire Build":[101,202,303,404,505,606]}]`; gotBody != want {
		t.Errorf("body: got %s, want %s", gotBody, want)
	}
}

func TestWebhook_NoRetryOnFailure(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	if err := NewWebhook(ts.URL).Send(context.Background(), testPayload()); err == nil {
		t.Fatal("want error on 500")
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want exactly 1", calls.Load())
	}
}

func TestWebhook_EmptyPayload(t *testing.T) {
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer ts.Close()

	if err := NewWebhook(ts.URL).Send(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if gotBody != "[]" {
		t.Errorf("body: got %q, want []", gotBody)
	}
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	if err := NewStdout(&buf).Send(context.Background(), testPayload()); err != nil {
		t.Fatal(err)
	}
	if want := "[{\"Fire Build\":[101,202,303,404,505,606]}]\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestRouter_FanOutContinuesAfterError(t *testing.T) {
	errBoom := errors.New("boom")
	var delivered int
	r := NewRouter(nil,
		NewCallback(func(context.Context, optimizer.Payload) error { return errBoom }),
		NewCallback(func(context.Context, optimizer.Payload) error { delivered++; return nil }),
		NewCallback(nil),
	)

	err := r.Send(context.Background(), testPayload())
	if !errors.Is(err, errBoom) {
		t.Errorf("error: got %v, want %v", err, errBoom)
	}
	if delivered != 1 {
		t.Errorf("second sink: delivered %d, want 1", delivered)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
