package language_test

import (
	"reflect"
	"testing"

	"spool/internal/language"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"deu", "de"},
		{"", ""},
		{"  fr  ", "fr"},
	}
	for _, tc := range tests {
		if got := language.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeListDeduplicates(t *testing.T) {
	got := language.NormalizeList([]string{"en", "EN", "en-US", "de", "", "de"})
	want := []string{"en", "de"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
}

func TestDisplayName(t *testing.T) {
	if got := language.DisplayName("en"); got != "English" {
		t.Fatalf("DisplayName(en) = %q", got)
	}
	if got := language.DisplayName("de"); got != "German" {
		t.Fatalf("DisplayName(de) = %q", got)
	}
}
