package version

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		// Equal versions
		{"equal simple", "1.0.0", "1.0.0", 0},
		{"equal two parts", "1.0", "1.0", 0},
		{"equal one part", "1", "1", 0},
		{"equal with v prefix", "v1.2.3", "1.2.3", 0},

		// a < b
		{"major less", "1.0.0", "2.0.0", -1},
		{"minor less", "1.1.0", "1.2.0", -1},
		{"patch less", "1.1.1", "1.1.2", -1},
		{"real world less", "0.20.1", "0.21.0", -1},
		{"double digit segment", "1.9.0", "1.10.0", -1},

		// a > b
		{"major greater", "2.0.0", "1.0.0", 1},
		{"minor greater", "1.2.0", "1.1.0", 1},
		{"patch greater", "1.1.2", "1.1.1", 1},

		// Missing segments compare as zero
		{"partial a", "1", "1.0.0", 0},
		{"partial b", "1.0.0", "1", 0},
		{"partial less", "1", "2.0.0", -1},
		{"four segments", "1.0.0.1", "1.0.0", 1},

		// Pre-release sorts below the release with the same prefix
		{"prerelease below release", "1.0.0-beta", "1.0.0", -1},
		{"release above prerelease", "1.0.0", "1.0.0-rc.1", 1},
		{"prerelease equal", "1.0.0-beta", "1.0.0-beta", 0},
		{"prerelease above lower release", "1.0.1-beta", "1.0.0", 1},
		{"prerelease ordering", "1.0.0-alpha", "1.0.0-beta", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare(%q, %q) unexpected error: %v", tt.a, tt.b, err)
			}
			if got != tt.expected {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "abc", "1.x.0", "1..0", "-1.0.0", "1.0.0beta"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", input)
		}
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		current  string
		expected bool
	}{
		{"newer remote", "1.2.0", "1.1.9", true},
		{"equal versions", "1.1.9", "1.1.9", false},
		{"older remote", "1.1.0", "1.2.0", false},
		{"malformed remote", "latest", "1.0.0", false},
		{"malformed current", "1.0.0", "dev", false},
		{"remote prerelease of current", "1.1.0-beta", "1.1.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.remote, tt.current); got != tt.expected {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.remote, tt.current, got, tt.expected)
			}
		})
	}
}
