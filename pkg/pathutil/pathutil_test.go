package pathutil

import "testing"

func TestRelativize(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		path     string
		expected string
	}{
		{"inside base", "/repo", "/repo/src/main.go", "src/main.go"},
		{"outside base", "/repo", "/other/main.go", "/other/main.go"},
		{"empty base", "", "/repo/main.go", "/repo/main.go"},
		{"equal to base", "/repo", "/repo", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Relativize(tt.base, tt.path); got != tt.expected {
				t.Errorf("Relativize(%q, %q) = %q, expected %q", tt.base, tt.path, got, tt.expected)
			}
		})
	}
}

func TestAbsolutize(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		path     string
		expected string
	}{
		{"relative path joins base", "/repo", "src/main.go", "/repo/src/main.go"},
		{"already absolute", "/repo", "/other/main.go", "/other/main.go"},
		{"empty base leaves path unchanged", "", "src/main.go", "src/main.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Absolutize(tt.base, tt.path); got != tt.expected {
				t.Errorf("Absolutize(%q, %q) = %q, expected %q", tt.base, tt.path, got, tt.expected)
			}
		})
	}
}

func TestRelativizeAbsolutizeRoundTrip(t *testing.T) {
	base := "/repo"
	original := "/repo/internal/pkg/file.go"

	rel := Relativize(base, original)
	abs := Absolutize(base, rel)

	if abs != original {
		t.Errorf("round trip failed: got %q, expected %q", abs, original)
	}
}

func TestSanitizeForKey(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"src/main.go", "src_main.go"},
		{"a\\b\\c", "a_b_c"},
		{"C:/repo/file.go", "C__repo_file.go"},
		{"nospecialchars", "nospecialchars"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeForKey(tt.in); got != tt.expected {
				t.Errorf("SanitizeForKey(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}
