package auth

import "testing"

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		pass string
		ok   bool
	}{
		{"gopher123", true},
		{"123gopher", true},
		{"a1", true},
		{"onlyletters", false},
		{"12345678", false},
		{"!!!???", false},
		{"", false},
	}

	for _, tt := range tests {
		err := checkPassword(tt.pass)
		if tt.ok && err != nil {
			t.Errorf("checkPassword(%q) = %v, want nil", tt.pass, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("checkPassword(%q) = nil, want error", tt.pass)
		}
	}
}
