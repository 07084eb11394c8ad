package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		out  float64
		want error
	}{
		{"1", 1, nil},
		{"1.0", 1, nil},
		{"1.23", 1.23, nil},
		{"1,23", 1.23, nil},
		{"0.01", 0.01, nil},
		{" 2.50 ", 2.5, nil},
		{"-1", 0, ErrInvalidAmount},
		{"0", 0, ErrInvalidAmount},
		{"abc", 0, ErrAmountNotNumber},
		{"1.2.3", 0, ErrAmountNotNumber},
		{"", 0, ErrAmountNotNumber},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.want == nil {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, tc.want) {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		50.5:    "50.50",
		0.1:     "0.10",
		1234.56: "1234.56",
		3:       "3.00",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("%v: got %q want %q", in, got, want)
		}
	}
}
