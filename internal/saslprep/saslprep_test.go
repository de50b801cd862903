package saslprep

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"user", "user", false},
		{"USER", "USER", false},
		{"I\u00adX", "IX", false},             // soft hyphen dropped
		{"a\u00a0b", "a b", false},            // no-break space mapped to space
		{"a\u2003b", "a b", false},            // em space mapped to space
		{"p\u200bss word", "pss word", false}, // zero-width space dropped
		{"pencil", "pencil", false},
		{"a\u0007b", "", true},    // control
		{"a\u007fb", "", true},    // DEL
		{"x\ue000", "", true},     // private use
		{"\ufdd0", "", true},      // non-character
		{"x\uffff", "", true},     // non-character
		{"bad\xffutf8", "", true}, // invalid UTF-8
	}
	for _, test := range tests {
		got, err := String(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("String(%q) = %q, want error", test.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("String(%q) = %v", test.in, err)
		} else if got != test.want {
			t.Errorf("String(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
