// Package x402 implements the server side of the x402 micropayment
// protocol: the payment challenge, the facilitator client, the price
// catalog, and the gate middleware that ties them together.
//
// The wire format follows x402 protocol version 2: CAIP-2 network
// identifiers (e.g. "eip155:8453"), base64-encoded JSON in the
// X-PAYMENT and X-PAYMENT-RESPONSE headers, and a structured 402
// response body listing acceptable payment requirements.
package x402

import "strings"

// X402Version is the protocol version this server speaks.
const X402Version = 2

// SchemeExact is the single payment scheme accepted by this server.
const SchemeExact = "exact"

// Header names used by the protocol.
const (
	PaymentHeader         = "X-PAYMENT"
	PaymentResponseHeader = "X-PAYMENT-RESPONSE"
)

// ResourceInfo describes the protected resource in challenges and proofs.
type ResourceInfo struct {
	// URL is the URL of the protected resource.
	URL string `json:"url"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType,omitempty"`
}

// PaymentRequirements defines a single acceptable payment option for a
// route. It appears in the "accepts" array of a challenge and is echoed
// back by the client inside its payment proof.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier ("exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network in CAIP-2 format.
	Network string `json:"network"`

	// Amount is the payment amount in atomic units of the asset.
	Amount string `json:"amount"`

	// Asset is the token contract address.
	Asset string `json:"asset"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// ExpiresAt bounds how long the stated terms of a challenge remain
	// valid, RFC 3339. Set by the challenge builder, empty on catalog
	// entries.
	ExpiresAt string `json:"expiresAt,omitempty"`

	// Extra carries scheme-specific data (EIP-3009 domain name/version).
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequired is the 402 response body: the machine-readable
// challenge describing how a client must pay.
type PaymentRequired struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Error is a human-readable reason the request was rejected.
	Error string `json:"error,omitempty"`

	// Resource describes the protected resource.
	Resource *ResourceInfo `json:"resource,omitempty"`

	// Accepts lists the payment options the server will accept.
	Accepts []PaymentRequirements `json:"accepts"`
}

// PaymentPayload is the payment proof a client attaches to a request in
// the X-PAYMENT header (base64-encoded JSON).
type PaymentPayload struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Resource optionally echoes the resource being paid for.
	Resource *ResourceInfo `json:"resource,omitempty"`

	// Accepted is the requirement the client chose to satisfy.
	Accepted PaymentRequirements `json:"accepted"`

	// Payload is the signed EIP-3009 authorization.
	Payload EVMPayload `json:"payload"`
}

// EVMPayload contains EIP-3009 authorization data for EVM payments.
type EVMPayload struct {
	// Signature is the hex-encoded ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization contains EIP-3009 transferWithAuthorization parameters.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte hex string preventing replay.
	Nonce string `json:"nonce"`
}

// VerifyResponse is the facilitator's verdict on a payment proof.
type VerifyResponse struct {
	// IsValid indicates whether the payment is valid.
	IsValid bool `json:"isValid"`

	// InvalidReason provides a short error code if the payment is invalid.
	InvalidReason string `json:"invalidReason,omitempty"`

	// InvalidMessage provides a human-readable message if invalid.
	InvalidMessage string `json:"invalidMessage,omitempty"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// SettleResponse is the settlement receipt returned by the facilitator
// and attached to successful responses in the X-PAYMENT-RESPONSE header.
type SettleResponse struct {
	// Success indicates whether the payment was settled.
	Success bool `json:"success"`

	// ErrorReason provides a short error code if settlement failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// ErrorMessage provides a human-readable message if settlement failed.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Transaction is the blockchain transaction reference.
	Transaction string `json:"transaction"`

	// Network is the network the payment settled on (CAIP-2 format).
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`

	// SettledAmount is the amount transferred, in atomic units.
	SettledAmount string `json:"settledAmount,omitempty"`

	// SettledAt is the settlement time, RFC 3339.
	SettledAt string `json:"settledAt,omitempty"`
}

// Nonce returns the proof's unique replay nonce, normalized to lower
// case so that hex-cased variants of the same value collide.
func (p *PaymentPayload) Nonce() string {
	return strings.ToLower(p.Payload.Authorization.Nonce)
}

// Validate checks the structural fields of a payment proof without
// contacting the facilitator. It does not judge the signature; that is
// the facilitator's job.
func (p *PaymentPayload) Validate() error {
	if p.X402Version != X402Version {
		return ErrUnsupportedVersion
	}
	if p.Accepted.Scheme != SchemeExact {
		return ErrUnsupportedScheme
	}
	if p.Payload.Signature == "" {
		return ErrMalformedProof
	}
	auth := p.Payload.Authorization
	if auth.From == "" || auth.To == "" || auth.Value == "" || auth.Nonce == "" {
		return ErrMalformedProof
	}
	return nil
}
