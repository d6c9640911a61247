package document

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestDocument_Text(t *testing.T) {
	cases := []struct {
		name       string
		normalized *string
		raw        *string
		want       string
		wantErr    error
	}{
		{"prefers normalized", strPtr("clean text"), strPtr("raw text"), "clean text", nil},
		{"falls back to raw", nil, strPtr("raw text"), "raw text", nil},
		{"blank normalized falls back", strPtr("   "), strPtr("raw text"), "raw text", nil},
		{"no text at all", nil, nil, "", ErrNoText},
		{"both blank", strPtr(""), strPtr("  \n"), "", ErrNoText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Document{NormalizedText: tc.normalized, RawText: tc.raw}
			got, err := d.Text()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
