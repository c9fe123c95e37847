package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopcrawl/shopcrawl/models"
)

func chatBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestCompleteJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth header: got %q", auth)
		}
		w.Write([]byte(chatBody(`{"product_sitemaps": ["https://x.com/products.xml"]}`)))
	}))
	defer srv.Close()

	c := NewClient(nil)
	raw, err := c.CompleteJSON(context.Background(), "prompt", Params{
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		ProductSitemaps []string `json:"product_sitemaps"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid JSON returned: %v", err)
	}
	if len(result.ProductSitemaps) != 1 {
		t.Errorf("sitemaps: got %v", result.ProductSitemaps)
	}
}

func TestCompleteJSON_InvalidContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatBody("not json at all")))
	}))
	defer srv.Close()

	c := NewClient(nil)
	if _, err := c.CompleteJSON(context.Background(), "prompt", Params{BaseURL: srv.URL}); err == nil {
		t.Error("expected an error for non-JSON content")
	}
}

func TestCompleteJSON_ErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, models.ErrCodeLLMAuthFailure},
		{http.StatusForbidden, models.ErrCodeLLMAuthFailure},
		{http.StatusTooManyRequests, models.ErrCodeLLMRateLimited},
		{http.StatusInternalServerError, models.ErrCodeLLMFailure},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"error": {"message": "nope"}}`))
		}))

		c := NewClient(nil)
		_, err := c.CompleteJSON(context.Background(), "prompt", Params{BaseURL: srv.URL})
		srv.Close()

		if err == nil {
			t.Errorf("status %d: expected an error", tt.status)
			continue
		}
		var crawlErr *models.CrawlError
		if !errors.As(err, &crawlErr) || crawlErr.Code != tt.wantCode {
			t.Errorf("status %d: got %v, want code %s", tt.status, err, tt.wantCode)
		}
	}
}

func TestCompleteJSON_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(nil)
	if _, err := c.CompleteJSON(context.Background(), "prompt", Params{BaseURL: srv.URL}); err == nil {
		t.Error("expected an error for an empty choices list")
	}
}
