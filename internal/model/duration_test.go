package model

import (
	"testing"
	"time"
)

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"PT5M", 5 * time.Minute},
		{"PT1H", time.Hour},
		{"PT30S", 30 * time.Second},
		{"P1D", 24 * time.Hour},
		{"P2DT3H", 51 * time.Hour},
		{"PT1H30M", 90 * time.Minute},
	}

	for _, tc := range cases {
		got, err := parseISODuration(tc.in)
		if err != nil {
			t.Errorf("parseISODuration(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseISODurationInvalid(t *testing.T) {
	for _, in := range []string{"", "P", "PT", "5M", "PT5", "PTM", "P1W", "PT0S", "PT5X", "P1D2H"} {
		if _, err := parseISODuration(in); err == nil {
			t.Errorf("parseISODuration(%q) succeeded, want error", in)
		}
	}
}
