package models

import "testing"

func TestHasDiscount(t *testing.T) {
	tests := []struct {
		name string
		rec  ProductRecord
		want bool
	}{
		{"sale pair", ProductRecord{Price: 249000, OriginalPrice: 300000}, true},
		{"no original", ProductRecord{Price: 249000}, false},
		{"equal prices", ProductRecord{Price: 300000, OriginalPrice: 300000}, false},
		{"inverted pair", ProductRecord{Price: 300000, OriginalPrice: 249000}, false},
		{"unknown price", ProductRecord{OriginalPrice: 300000}, false},
	}

	for _, tt := range tests {
		if got := tt.rec.HasDiscount(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
