package slug

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation collapses", "A, B & C: Test!", "a-b-c-test"},
		{"leading and trailing symbols", "--Already Slugged--", "already-slugged"},
		{"digits kept", "Top 10 Tips for 2026", "top-10-tips-for-2026"},
		{"repeated separators", "one  --  two", "one-two"},
		{"empty", "", ""},
		{"symbols only", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.title); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
