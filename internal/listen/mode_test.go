package listen

import "testing"

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		configured string
		want       string
	}{
		{"explicit wins", "full_audio", "auto", "full_audio"},
		{"explicit descriptor", "descriptor_only", "auto", "descriptor_only"},
		{"unrecognized explicit falls to configured", "hybrid", "metadata_only", "metadata_only"},
		{"empty explicit falls to configured", "", "full_audio", "full_audio"},
		{"unrecognized configured falls to auto", "bogus", "loud", "auto"},
		{"both empty", "", "", "auto"},
		{"failed is not a requestable mode", "failed", "", "auto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMode(tt.explicit, tt.configured); got != tt.want {
				t.Fatalf("ResolveMode(%q, %q) = %q, want %q", tt.explicit, tt.configured, got, tt.want)
			}
		})
	}
}
