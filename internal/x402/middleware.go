package x402

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bartonguestier1725-collab/x402-weather-api/internal/replay"
)

// PaymentContextKey is the gin context key holding the verification
// verdict for the handler of a paid request.
const PaymentContextKey = "x402_payment"

// GateConfig wires the payment gate's collaborators.
type GateConfig struct {
	// Catalog maps routes to payment terms. Routes without an entry are
	// forwarded untouched.
	Catalog *Catalog

	// Challenges builds 402 response bodies.
	Challenges *ChallengeBuilder

	// Facilitator verifies and settles proofs.
	Facilitator Facilitator

	// Guard enforces single admission per proof nonce.
	Guard replay.Guard

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewPaymentGate returns the gin middleware that gates priced routes
// behind the x402 protocol.
//
// Per request the gate walks a fixed sequence: price the route, parse
// and structurally validate the proof, verify it with the facilitator
// against the route's exact terms, admit the nonce, settle, and only
// then invoke the handler. Every rejection short-circuits with a
// structured body; handlers never observe payment failures.
func NewPaymentGate(cfg GateConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		price := cfg.Catalog.PriceFor(c.Request.Method, c.Request.URL.Path)
		if price == nil {
			// Free endpoint.
			c.Next()
			return
		}

		resourceURL := buildResourceURL(c.Request)

		header := c.Request.Header.Get(PaymentHeader)
		if header == "" {
			logger.Info("no payment header provided", "path", c.Request.URL.Path)
			challenge(c, cfg.Challenges, price, resourceURL, rejectionText(ErrNoProof))
			return
		}

		payment, err := DecodePayment(header)
		if err == nil {
			err = payment.Validate()
		}
		if err != nil {
			logger.Warn("malformed payment header", "path", c.Request.URL.Path, "error", err)
			challenge(c, cfg.Challenges, price, resourceURL, rejectionText(err))
			return
		}

		// A proof priced or addressed for another route must be rejected
		// even if its signature would verify.
		if err := matchesRequirements(payment.Accepted, price.Requirements); err != nil {
			logger.Warn("proof bound to different terms", "path", c.Request.URL.Path, "error", err)
			challenge(c, cfg.Challenges, price, resourceURL, rejectionText(err))
			return
		}

		verdict, err := cfg.Facilitator.Verify(c.Request.Context(), payment, price.Requirements)
		if err != nil {
			if errors.Is(err, ErrFacilitatorUnavailable) {
				logger.Error("facilitator unavailable during verify", "error", err)
				abortError(c, http.StatusServiceUnavailable, "FACILITATOR_UNAVAILABLE",
					"Payment verification is temporarily unavailable, retry later")
				return
			}
			logger.Warn("payment verification rejected", "error", err)
			challenge(c, cfg.Challenges, price, resourceURL, rejectionText(err))
			return
		}
		if !verdict.IsValid {
			err := fmt.Errorf("%w: %s", ErrInvalidProof, invalidReason(verdict))
			logger.Warn("payment invalid", "error", err)
			challenge(c, cfg.Challenges, price, resourceURL, invalidReason(verdict))
			return
		}

		accepted, err := cfg.Guard.Admit(c.Request.Context(), payment.Nonce())
		if err != nil {
			logger.Error("replay guard admission failed", "error", err)
			abortError(c, http.StatusServiceUnavailable, "REPLAY_GUARD_UNAVAILABLE",
				"Payment admission is temporarily unavailable, retry later")
			return
		}
		if !accepted {
			logger.Warn("duplicate payment proof", "payer", verdict.Payer, "error", ErrDuplicateProof)
			challenge(c, cfg.Challenges, price, resourceURL, rejectionText(ErrDuplicateProof))
			return
		}

		// The nonce is consumed from here on. Settlement runs detached
		// from the client connection so a disconnect cannot leave payer
		// and payee state inconsistent.
		settleCtx := context.WithoutCancel(c.Request.Context())
		receipt, err := cfg.Facilitator.Settle(settleCtx, payment, price.Requirements)
		if err != nil || !receipt.Success {
			if err != nil {
				logger.Error("settlement failed", "error", err)
			} else {
				logger.Error("settlement unsuccessful", "reason", receipt.ErrorReason)
			}
			abortError(c, http.StatusBadGateway, "SETTLEMENT_FAILED",
				"Payment settlement failed; do not retry with the same proof")
			return
		}

		logger.Info("payment settled",
			"payer", receipt.Payer,
			"transaction", receipt.Transaction,
			"amount", receipt.SettledAmount)

		if encoded, err := EncodeSettlement(*receipt); err == nil {
			c.Writer.Header().Set(PaymentResponseHeader, encoded)
		} else {
			logger.Warn("failed to encode settlement receipt", "error", err)
		}

		c.Set(PaymentContextKey, verdict)
		c.Next()
	}
}

// GetPaymentFromContext extracts the verification verdict stored by the
// gate, or nil for free routes.
func GetPaymentFromContext(c *gin.Context) *VerifyResponse {
	value, exists := c.Get(PaymentContextKey)
	if !exists {
		return nil
	}
	verdict, ok := value.(*VerifyResponse)
	if !ok {
		return nil
	}
	return verdict
}

// matchesRequirements checks that the terms a proof claims to satisfy
// are exactly the route's terms.
func matchesRequirements(accepted, required PaymentRequirements) error {
	switch {
	case accepted.Scheme != required.Scheme:
		return ErrWrongRouteBinding
	case accepted.Network != required.Network:
		return ErrWrongRouteBinding
	case accepted.Amount != required.Amount:
		return ErrWrongRouteBinding
	case accepted.Asset != required.Asset:
		return ErrWrongRouteBinding
	case accepted.PayTo != required.PayTo:
		return ErrWrongRouteBinding
	}
	return nil
}

// rejectionText maps a classified payment rejection onto its client
// facing challenge message.
func rejectionText(err error) string {
	switch {
	case errors.Is(err, ErrNoProof):
		return "Payment required"
	case errors.Is(err, ErrWrongRouteBinding):
		return "Payment proof does not match this route's terms"
	case errors.Is(err, ErrDuplicateProof):
		return "Duplicate payment proof"
	case errors.Is(err, ErrMalformedProof),
		errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrUnsupportedScheme):
		return "Malformed payment proof"
	case errors.Is(err, ErrInvalidProof):
		return "Payment proof rejected"
	default:
		return "Payment verification failed"
	}
}

// challenge writes the 402 response for a priced route and aborts the
// handler chain.
func challenge(c *gin.Context, builder *ChallengeBuilder, price *RoutePrice, resourceURL, errMsg string) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, builder.Build(price, resourceURL, errMsg))
}

// abortError writes a structured non-402 error body and aborts.
func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": message})
}

func invalidReason(verdict *VerifyResponse) string {
	if verdict.InvalidMessage != "" {
		return verdict.InvalidMessage
	}
	if verdict.InvalidReason != "" {
		return verdict.InvalidReason
	}
	return "Payment proof rejected"
}

// buildResourceURL derives the query-independent resource identifier
// for a request.
func buildResourceURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
