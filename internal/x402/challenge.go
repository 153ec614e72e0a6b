package x402

import "time"

// DefaultChallengeTTL bounds how long a challenge's stated terms remain
// valid.
const DefaultChallengeTTL = 2 * time.Minute

// ChallengeBuilder constructs 402 response bodies for priced routes.
// Building is pure: no state is mutated and nothing is persisted.
type ChallengeBuilder struct {
	ttl time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// NewChallengeBuilder returns a builder with the given challenge TTL.
// A non-positive TTL falls back to DefaultChallengeTTL.
func NewChallengeBuilder(ttl time.Duration) *ChallengeBuilder {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeBuilder{ttl: ttl, now: time.Now}
}

// TTL returns the configured challenge TTL.
func (b *ChallengeBuilder) TTL() time.Duration {
	return b.ttl
}

// Build produces the payment challenge for a route. The requirements are
// copied from the catalog entry with an expiry of now + TTL stamped on.
func (b *ChallengeBuilder) Build(price *RoutePrice, resourceURL, errMsg string) PaymentRequired {
	reqs := price.Requirements
	reqs.ExpiresAt = b.now().Add(b.ttl).UTC().Format(time.RFC3339)

	return PaymentRequired{
		X402Version: X402Version,
		Error:       errMsg,
		Resource: &ResourceInfo{
			URL:         resourceURL,
			Description: price.Description,
			MimeType:    "application/json",
		},
		Accepts: []PaymentRequirements{reqs},
	}
}
