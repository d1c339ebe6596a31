package models

import "testing"

func TestParseHbarExact(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1", TinybarPerHbar},
		{"5.1", 510_000_000},
		{"0.00000001", 1},
		{"10.5", 1_050_000_000},
		{".5", 50_000_000},
		{"92233720368.54775807", 9223372036854775807},
	}
	for _, tc := range cases {
		got, err := ParseHbar(tc.in)
		if err != nil {
			t.Fatalf("ParseHbar(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseHbar(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseHbarRejects(t *testing.T) {
	for _, in := range []string{
		"", "-1", "+1", "abc", "1.2.3", "0.000000001",
		// One past max, one whose accumulation wraps fully past 2^64
		// and lands positive again.
		"92233720368.54775808",
		"184467440737.09551617",
		"999999999999999999999",
	} {
		if _, err := ParseHbar(in); err == nil {
			t.Fatalf("ParseHbar(%q) accepted", in)
		}
	}
}

func TestFormatHbarTrimsTrailingZeros(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{TinybarPerHbar, "1"},
		{510_000_000, "5.1"},
		{1, "0.00000001"},
		{-150_000_000, "-1.5"},
	}
	for _, tc := range cases {
		if got := FormatHbar(tc.in); got != tc.want {
			t.Fatalf("FormatHbar(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, amount := range []string{"1", "5.1", "0.00000001", "123.456"} {
		tinybar, err := ParseHbar(amount)
		if err != nil {
			t.Fatalf("ParseHbar(%q): %v", amount, err)
		}
		if got := FormatHbar(tinybar); got != amount {
			t.Fatalf("round trip %q -> %d -> %q", amount, tinybar, got)
		}
	}
}
