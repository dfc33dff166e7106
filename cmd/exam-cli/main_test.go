package main

import "testing"

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"a", 0, true},
		{"d", 3, true},
		{"1", 0, true},
		{"4", 3, true},
		{"e", 0, false},
		{"0", 0, false},
		{"5", 0, false},
		{"ab", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseChoice(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseChoice(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
