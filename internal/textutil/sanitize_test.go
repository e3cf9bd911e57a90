package textutil

import (
	"reflect"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"How to: win / lose", "How to- win - lose"},
		{"  café crème  ", "cafe creme"},
		{"what?!", "what!"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateCutsAtWordBoundary(t *testing.T) {
	got := Truncate("the quick brown fox jumps over", 15)
	if got != "the quick" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 15); got != "short" {
		t.Fatalf("short input changed: %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second one! Is this third? trailing bit")
	want := []string{"First one.", "Second one!", "Is this third?", "trailing bit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitSentences = %#v", got)
	}
	if out := SplitSentences("   "); len(out) != 0 {
		t.Fatalf("blank input produced %#v", out)
	}
}
