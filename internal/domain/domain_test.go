package domain

import "testing"

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want Address
		ok   bool
	}{
		{"0xCAFE", "0xcafe", true},
		{"cafe", "0xcafe", true},
		{"0x0", "0x0", true},
		{"", "", false},
		{"0xnothex", "", false},
		{"0x" + string(make([]byte, 70)), "", false},
	}

	for _, c := range cases {
		got, err := NormalizeAddress(c.in)
		if c.ok && err != nil {
			t.Errorf("NormalizeAddress(%q): unexpected error %v", c.in, err)
			continue
		}
		if !c.ok {
			if err == nil {
				t.Errorf("NormalizeAddress(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAddress_IsZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress must report zero")
	}
	if Address("0xcafe").IsZero() {
		t.Error("0xcafe must not report zero")
	}
}

func TestAuction_Ended(t *testing.T) {
	a := Auction{EndTime: 1000}
	if a.Ended(999) {
		t.Error("auction must be active before its end time")
	}
	// End time reached means ended; no bids can land at the boundary.
	if !a.Ended(1000) {
		t.Error("auction must be ended at its end time")
	}
}

func TestAuction_HasBids(t *testing.T) {
	a := Auction{HighestBidder: ZeroAddress}
	if a.HasBids() {
		t.Error("zero highest bidder means no bids")
	}
	a.HighestBidder = "0xb0b"
	if !a.HasBids() {
		t.Error("non-zero highest bidder means bids")
	}
}

func TestRarityTier(t *testing.T) {
	if RarityTier(0).Valid() || RarityTier(5).Valid() {
		t.Error("tiers outside 1-4 must be invalid")
	}
	if !RarityTier(1).Valid() || !RarityTier(4).Valid() {
		t.Error("tiers 1-4 must be valid")
	}
	if RarityTier(4).Label() != "legendary" {
		t.Errorf("expected legendary, got %s", RarityTier(4).Label())
	}
}
