package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeliver_SignsPayload(t *testing.T) {
	secret := "topsecret"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Shopcrawl-Signature")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	event := &Event{
		Type:      EventCrawlCompleted,
		JobID:     "crawl-123",
		Timestamp: time.Now().Unix(),
		Data:      map[string]int{"products": 42},
	}
	if err := Deliver(context.Background(), srv.URL, secret, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature: got %q, want %q", gotSig, want)
	}
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	var sigPresent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sigPresent = r.Header["X-Shopcrawl-Signature"]
	}))
	defer srv.Close()

	event := &Event{Type: EventCrawlFailed, JobID: "crawl-1"}
	if err := Deliver(context.Background(), srv.URL, "", event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sigPresent {
		t.Error("signature header sent without a secret")
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	event := &Event{Type: EventCrawlCompleted, JobID: "crawl-1"}
	if err := Deliver(context.Background(), srv.URL, "", event); err == nil {
		t.Error("expected an error for a 500 endpoint")
	}
}
