package sitemap

import (
	"testing"

	"github.com/shopcrawl/shopcrawl/models"
)

func TestParse_URLSet(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://shop.example.com/san-pham/a--s1</loc></url>
  <url><loc>https://shop.example.com/san-pham/b--s2</loc></url>
  <url><loc>https://shop.example.com/san-pham/c--s3</loc></url>
</urlset>`

	kind, locs, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != models.SitemapKindURLSet {
		t.Errorf("kind: got %q, want %q", kind, models.SitemapKindURLSet)
	}
	if len(locs) != 3 {
		t.Fatalf("locs: got %d, want 3: %v", len(locs), locs)
	}
	if locs[0] != "https://shop.example.com/san-pham/a--s1" {
		t.Errorf("first loc: got %q", locs[0])
	}
}

func TestParse_SitemapIndex(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://shop.example.com/product-sitemap1.xml</loc></sitemap>
  <sitemap><loc>https://shop.example.com/product-sitemap2.xml</loc></sitemap>
</sitemapindex>`

	kind, locs, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != models.SitemapKindIndex {
		t.Errorf("kind: got %q, want %q", kind, models.SitemapKindIndex)
	}
	if len(locs) != 2 {
		t.Errorf("locs: got %d, want 2", len(locs))
	}
}

func TestParse_TruncatedBody(t *testing.T) {
	// Cut off mid-tag: the complete entries before the cut must survive.
	content := `<?xml version="1.0"?>
<urlset>
  <url><loc>https://shop.example.com/p/1</loc></url>
  <url><loc>https://shop.example.com/p/2</loc></url>
  <url><loc>https://shop.example.com/p/3</loc></url>
  <url><lo`

	kind, locs, err := Parse(content)
	if err != nil {
		t.Fatalf("truncated sitemap should still parse, got: %v", err)
	}
	if kind != models.SitemapKindURLSet {
		t.Errorf("kind: got %q", kind)
	}
	if len(locs) < 3 {
		t.Fatalf("complete entries lost: got %d locs, want at least 3", len(locs))
	}
	for i, want := range []string{
		"https://shop.example.com/p/1",
		"https://shop.example.com/p/2",
		"https://shop.example.com/p/3",
	} {
		if locs[i] != want {
			t.Errorf("loc[%d]: got %q, want %q", i, locs[i], want)
		}
	}
}

func TestParse_NoSitemapRoot(t *testing.T) {
	if _, _, err := Parse("<html><body>404 not found</body></html>"); err == nil {
		t.Error("expected an error for a non-sitemap document")
	}
}

func TestIsTruncated(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"complete", "<urlset></urlset>", false},
		{"complete with trailing newline", "<urlset></urlset>\n", false},
		{"cut mid-tag", "<urlset><url><lo", true},
		{"cut mid-text", "<urlset><url><loc>https://x", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		if got := IsTruncated(tt.content); got != tt.want {
			t.Errorf("%s: IsTruncated = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsProductURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://shop.example.com/san-pham/may-loc-nuoc--s123", true},
		{"https://shop.example.com/product/blender", true},
		{"https://shop.example.com/p/12345", true},
		{"https://tiki.vn/may-xay-p188052.html", true},
		{"https://shop.example.com/ao-thun-i99887766", true},
		{"https://shop.example.com/123456.html", true},
		{"https://shop.example.com/category/kitchen", false},
		{"https://shop.example.com/blog/huong-dan-chon-may", false},
		{"https://shop.example.com/cart", false},
		{"https://shop.example.com/about", false},
		{"https://shop.example.com/", false},
	}
	for _, tt := range tests {
		if got := IsProductURL(tt.url); got != tt.want {
			t.Errorf("IsProductURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
