package repository

import "testing"

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Essay", `%essay%`},
		{"100%", `%100\%%`},
		{"lab_2", `%lab\_2%`},
		{`C:\Users`, `%c:\\users%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := containsPattern(tt.in); got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}
}
