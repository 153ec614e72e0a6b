package x402

import "errors"

// Sentinel errors for the payment gate. Everything the middleware can
// reject a request with maps onto one of these, so handlers and tests
// can classify outcomes with errors.Is.
var (
	// ErrNoProof indicates the request carried no X-PAYMENT header.
	ErrNoProof = errors.New("x402: no payment proof supplied")

	// ErrMalformedProof indicates the X-PAYMENT header could not be
	// decoded or is missing required fields.
	ErrMalformedProof = errors.New("x402: malformed payment proof")

	// ErrInvalidProof indicates the facilitator definitively rejected
	// the proof. Not retryable.
	ErrInvalidProof = errors.New("x402: invalid payment proof")

	// ErrWrongRouteBinding indicates a proof bound to a different
	// route's amount, asset, recipient, or network. Treated as invalid.
	ErrWrongRouteBinding = errors.New("x402: proof bound to different payment terms")

	// ErrDuplicateProof indicates the proof's nonce was already admitted.
	ErrDuplicateProof = errors.New("x402: duplicate payment proof")

	// ErrFacilitatorUnavailable indicates a transient facilitator
	// failure (timeout, connection error, 5xx). Retryable.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator unavailable")

	// ErrVerificationFailed indicates the verify call failed definitively.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates settlement failed after a proof was
	// verified and its nonce admitted. Fatal for the request.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")

	// ErrUnsupportedVersion indicates an unsupported protocol version.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrUnsupportedScheme indicates an unsupported payment scheme.
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")
)
