package cache

import (
	"fmt"
	"testing"

	"github.com/shopcrawl/shopcrawl/models"
)

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("https://shop.example.com/p/1")
	k2 := Key("https://shop.example.com/p/1")
	if k1 != k2 {
		t.Errorf("same URL produced different keys: %s vs %s", k1, k2)
	}
	if k1 == Key("https://shop.example.com/p/2") {
		t.Error("different URLs produced the same key")
	}
}

func TestCache_SetGet(t *testing.T) {
	c := New(10)
	rec := &models.ProductRecord{URL: "https://shop.example.com/p/1", Title: "x"}
	key := Key(rec.URL)

	c.Set(key, rec)
	got, hit := c.Get(key, 60000)
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if got.Title != "x" {
		t.Errorf("title: got %q", got.Title)
	}
}

func TestCache_ZeroMaxAgeSkipsLookup(t *testing.T) {
	c := New(10)
	key := Key("https://shop.example.com/p/1")
	c.Set(key, &models.ProductRecord{})

	if _, hit := c.Get(key, 0); hit {
		t.Error("maxAge 0 must disable the cache lookup")
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(10)
	if _, hit := c.Get(Key("https://shop.example.com/missing"), 60000); hit {
		t.Error("unexpected hit for a missing key")
	}
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(2)
	keys := make([]string, 3)
	for i := range keys {
		keys[i] = Key(fmt.Sprintf("https://shop.example.com/p/%d", i))
		c.Set(keys[i], &models.ProductRecord{})
	}

	hits := 0
	for _, k := range keys {
		if _, hit := c.Get(k, 60000); hit {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("hits: got %d, want 2 (one random eviction)", hits)
	}
}
