package slug

import (
	"errors"
	"strings"
	"testing"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"conventional prefix", "fix: crash-on-start", "fix-crash-on-start"},
		{"spaces and case", "Add User Login", "add-user-login"},
		{"underscores", "new_storage_engine", "new-storage-engine"},
		{"special chars dropped", "perf!! (cache) #42", "perf-cache-42"},
		{"collapse hyphens", "a  --  b", "a-b"},
		{"empty", "   ", "unnamed"},
		{"only symbols", "!!!", "unnamed"},
		{"scoped", "feat/api.v2", "feat-api-v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMake_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := Make(long)
	if len(got) > maxLen {
		t.Errorf("len = %d, want <= %d", len(got), maxLen)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug %q ends with hyphen", got)
	}
}

func TestKey(t *testing.T) {
	got, err := Key("  Checkout Flow  ")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if got != "checkout-flow" {
		t.Errorf("Key = %q, want checkout-flow", got)
	}

	for _, bad := range []string{"", "   ", "a\x00b", strings.Repeat("x", 201)} {
		if _, err := Key(bad); !errors.Is(err, sdderr.ErrInvalidInput) {
			t.Errorf("Key(%q) error = %v, want ErrInvalidInput", bad, err)
		}
	}
}
