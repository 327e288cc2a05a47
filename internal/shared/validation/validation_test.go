package validation

import "testing"

func TestValidDate(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"2025-01-31", true},
		{"2025-02-30", false},
		{"2025-1-31", false},
		{"not-a-date", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidDate(tt.value); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestValidMonth(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"2025-13", false},
		{"2025-1", false},
		{"2025-01-01", false},
	}

	for _, tt := range tests {
		if got := ValidMonth(tt.value); got != tt.want {
			t.Errorf("ValidMonth(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestValidUUID(t *testing.T) {
	if !ValidUUID("8f14e45f-ceea-467f-a1d6-cf0e51a5a1d6") {
		t.Error("well-formed UUID rejected")
	}
	if ValidUUID("not-a-uuid") {
		t.Error("malformed UUID accepted")
	}
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		value float64
		want  bool
	}{
		{12.5, true},
		{12.55, true},
		{0, true},
		{-1, false},
		{3.14159, false},
	}

	for _, tt := range tests {
		if got, _ := ValidAmount(tt.value); got != tt.want {
			t.Errorf("ValidAmount(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 100); got != "hello" {
		t.Errorf("SanitizeString() = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("SanitizeString() truncation = %q", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1000, 1, 730); got != 730 {
		t.Errorf("Clamp(1000) = %d, want 730", got)
	}
	if got := Clamp(0, 1, 730); got != 1 {
		t.Errorf("Clamp(0) = %d, want 1", got)
	}
	if got := Clamp(30, 1, 730); got != 30 {
		t.Errorf("Clamp(30) = %d, want 30", got)
	}
}
