package x402

import (
	"testing"
	"time"
)

func TestChallengeBuilder_Build(t *testing.T) {
	catalog := testCatalog(t, []PriceSpec{
		{Method: "GET", Path: "/weather/current", Price: "0.001", Description: "Current weather"},
	})
	price := catalog.PriceFor("GET", "/weather/current")

	builder := NewChallengeBuilder(90 * time.Second)
	fixed := time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC)
	builder.now = func() time.Time { return fixed }

	got := builder.Build(price, "http://api.example.com/weather/current", "Payment required")

	if got.X402Version != X402Version {
		t.Errorf("expected version %d, got %d", X402Version, got.X402Version)
	}
	if got.Resource == nil || got.Resource.URL != "http://api.example.com/weather/current" {
		t.Fatalf("unexpected resource: %+v", got.Resource)
	}
	if len(got.Accepts) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(got.Accepts))
	}
	want := fixed.Add(90 * time.Second).Format(time.RFC3339)
	if got.Accepts[0].ExpiresAt != want {
		t.Errorf("expected expiry %s, got %s", want, got.Accepts[0].ExpiresAt)
	}
}

func TestChallengeBuilder_DoesNotMutateCatalogEntry(t *testing.T) {
	catalog := testCatalog(t, []PriceSpec{
		{Method: "GET", Path: "/weather/current", Price: "0.001"},
	})
	price := catalog.PriceFor("GET", "/weather/current")

	builder := NewChallengeBuilder(time.Minute)
	builder.Build(price, "http://api.example.com/weather/current", "")

	if price.Requirements.ExpiresAt != "" {
		t.Error("building a challenge must not stamp expiry onto the catalog entry")
	}
}

func TestChallengeBuilder_DefaultTTL(t *testing.T) {
	builder := NewChallengeBuilder(0)
	if builder.TTL() != DefaultChallengeTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultChallengeTTL, builder.TTL())
	}
}
