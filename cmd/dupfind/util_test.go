package main

import "testing"

// =============================================================================
// parseSize
// =============================================================================

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1k", 1000},
		{"1K", 1000},
		{"1kb", 1000},
		{"1KB", 1000},
		{"1m", 1000000},
		{"1M", 1000000},
		{"1g", 1000000000},
		{"1234", 1234},
		{"0", 0},
		{"100k", 100000},
		{"1KiB", 1024},
		{"1MiB", 1048576},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	tests := []string{"invalid", "abc", "1.5.5"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := parseSize(input)
			if err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestParseSizeEmptyStringReturnsError(t *testing.T) {
	if _, err := parseSize(""); err == nil {
		t.Error("parseSize(\"\") should return error, got nil")
	}
}

// =============================================================================
// jsonSafePath
// =============================================================================

func TestJSONSafePathValidUTF8Unchanged(t *testing.T) {
	tests := []string{
		"/home/user/file.txt",
		"",
		"/a/b/c",
		"日本語のパス",
	}
	for _, p := range tests {
		if got := jsonSafePath(p); got != p {
			t.Errorf("jsonSafePath(%q) = %q, want unchanged", p, got)
		}
	}
}

func TestJSONSafePathInvalidUTF8Escaped(t *testing.T) {
	invalid := "/bad/\xff\xfe/path"
	got := jsonSafePath(invalid)
	if got == invalid {
		t.Fatalf("jsonSafePath should not return invalid UTF-8 unchanged")
	}
	if len(got) < len(nonUTF8Marker) || got[:len(nonUTF8Marker)] != nonUTF8Marker {
		t.Errorf("jsonSafePath(%q) = %q, want it to start with the marker", invalid, got)
	}
}
