package colorutil

import (
	"testing"
)

func TestWrapHue(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{179, 179},
		{180, 0},
		{270, 90},
		{-30, 150},
		{-180, 0},
	}
	for _, tt := range tests {
		if got := WrapHue(tt.in); got != tt.want {
			t.Errorf("WrapHue(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampChannel(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-4, 0},
		{0, 0},
		{127.4, 127},
		{127.5, 128},
		{255, 255},
		{510, 255},
	}
	for _, tt := range tests {
		if got := ClampChannel(tt.in); got != tt.want {
			t.Errorf("ClampChannel(%v) = %d; want %d", tt.in, got, tt.want)
		}
	}
}
