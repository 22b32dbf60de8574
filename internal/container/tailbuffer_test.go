package container

import (
	"strings"
	"testing"
)

func TestTailBuffer(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		writes []string
		want   string
	}{
		{"empty", 4, nil, ""},
		{"under capacity", 8, []string{"ab", "cd"}, "abcd"},
		{"exact capacity", 4, []string{"ab", "cd"}, "abcd"},
		{"wraps", 4, []string{"abc", "def"}, "cdef"},
		{"single oversized write", 4, []string{"0123456789"}, "6789"},
		{"many small writes", 3, []string{"a", "b", "c", "d", "e"}, "cde"},
		{"oversized after wrap", 4, []string{"ab", "xyz123456"}, "3456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTailBuffer(tt.size)
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write(%q) = %d, %v", w, n, err)
				}
			}
			if got := b.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if b.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", b.Len(), len(tt.want))
			}
		})
	}
}

func TestTailBuffer_KeepsMarkersAfterFlood(t *testing.T) {
	b := newTailBuffer(64)
	_, _ = b.Write([]byte(strings.Repeat("spam\n", 1000)))
	_, _ = b.Write([]byte("__RESULT__ 3\n__PASS__\n"))

	if !strings.HasSuffix(b.String(), "__RESULT__ 3\n__PASS__\n") {
		t.Errorf("tail lost the markers: %q", b.String())
	}
}
