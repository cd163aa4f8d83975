package forge

import "testing"

func TestCoinFromFloatRounds(t *testing.T) {
	cases := []struct {
		in   float64
		want Coin
	}{
		{0, 0},
		{1, 10000},
		{2.5, 25000},
		{1.23456, 12346},
		{0.00004, 0},
		{-1.25, -12500},
	}
	for _, c := range cases {
		if got := CoinFromFloat(c.in); got != c.want {
			t.Fatalf("CoinFromFloat(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCoinString(t *testing.T) {
	cases := []struct {
		in   Coin
		want string
	}{
		{0, "0.0000"},
		{10000, "1.0000"},
		{12345, "1.2345"},
		{5, "0.0005"},
		{-12500, "-1.2500"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Fatalf("Coin(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCoinFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 0.25, 100, 2.5, 1234.5678} {
		if got := CoinFromFloat(f).Float(); got != f {
			t.Fatalf("round trip %v -> %v", f, got)
		}
	}
}

func TestRound4(t *testing.T) {
	if got := round4(0.123456); got != 0.1235 {
		t.Fatalf("round4(0.123456) = %v", got)
	}
	if got := round4(1.15); got != 1.15 {
		t.Fatalf("round4(1.15) = %v", got)
	}
}
