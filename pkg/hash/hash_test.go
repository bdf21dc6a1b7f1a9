package hash

import (
	"regexp"
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	// Known SHA256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got := SHA256Hex("hello")
	if got != want {
		t.Errorf("SHA256Hex(\"hello\") = %s, want %s", got, want)
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got := SHA256Hex("")
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestVideoHashPrefix(t *testing.T) {
	fullHash := SHA256Hex("dQw4w9WgXcQ")

	tests := []struct {
		name      string
		videoID   string
		prefixLen int
		want      string
	}{
		{"lookup prefix", "dQw4w9WgXcQ", PrefixLen, fullHash[:4]},
		{"8 char prefix", "dQw4w9WgXcQ", 8, fullHash[:8]},
		{"full hash if prefix too long", "dQw4w9WgXcQ", 100, fullHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VideoHashPrefix(tt.videoID, tt.prefixLen)
			if got != tt.want {
				t.Errorf("VideoHashPrefix(%q, %d) = %s, want %s", tt.videoID, tt.prefixLen, got, tt.want)
			}
		})
	}
}

func TestVideoHashPrefix_IsLowercaseHex(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{4}$`)
	for _, id := range []string{"dQw4w9WgXcQ", "jNQXAC9IVRw", "-_-_-_"} {
		if p := VideoHashPrefix(id, PrefixLen); !re.MatchString(p) {
			t.Errorf("VideoHashPrefix(%q) = %q, not a valid lookup prefix", id, p)
		}
	}
}
