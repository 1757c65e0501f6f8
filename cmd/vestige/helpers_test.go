package main

import (
	"path/filepath"
	"testing"
)

func TestResolveRoot(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no args defaults to current dir",
			args: nil,
			want: ".",
		},
		{
			name: "explicit relative path",
			args: []string{"sub/dir"},
			want: "sub/dir",
		},
		{
			name: "absolute path passes through",
			args: []string{"/tmp/project"},
			want: "/tmp/project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRoot(tt.args)
			if err != nil {
				t.Fatalf("resolveRoot() error = %v", err)
			}
			want, err := filepath.Abs(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("resolveRoot(%v) = %q, want %q", tt.args, got, want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly_ten", 11, "exactly_ten"},
		{"a.much.longer.qualified.name", 12, "a.much.lo..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	if err != nil {
		t.Fatalf("parseID(42) error = %v", err)
	}
	if id != 42 {
		t.Errorf("parseID(42) = %d", id)
	}

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}
