package support

import "testing"

func TestUniqueIdentifierIsStableAndDistinct(t *testing.T) {
	a := UniqueIdentifier("ccu-living-room", "VCU1234567:1", "STATE")
	b := UniqueIdentifier("ccu-living-room", "VCU1234567:1", "STATE")
	if a != b {
		t.Fatal("expected UniqueIdentifier to be deterministic")
	}
	if len(a) != uniqueIdentifierLen {
		t.Fatalf("expected %d hex chars, got %d (%q)", uniqueIdentifierLen, len(a), a)
	}

	c := UniqueIdentifier("ccu-living-room", "VCU1234567:1", "LEVEL")
	if a == c {
		t.Fatal("expected different parameters to produce different identifiers")
	}
	d := UniqueIdentifier("ccu-living-room", "VCU1234567:2", "STATE")
	if a == d {
		t.Fatal("expected different addresses to produce different identifiers")
	}
	e := UniqueIdentifier("ccu-bedroom", "VCU1234567:1", "STATE")
	if a == e {
		t.Fatal("expected different central names to produce different identifiers")
	}
}

func TestAddressPath(t *testing.T) {
	got := AddressPath("homematic", "HmIP-RF", "abc123")
	want := "homematic/HmIP-RF/abc123/"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
