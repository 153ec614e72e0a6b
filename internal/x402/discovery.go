package x402

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DiscoveryPath is the well-known URI (RFC 8615) where agent
// marketplaces can enumerate the priced routes and their payment terms
// without paying.
const DiscoveryPath = "/.well-known/payment-options"

// DiscoveryDocument is the body served at DiscoveryPath.
type DiscoveryDocument struct {
	// X402Version is the protocol version proofs must speak.
	X402Version int `json:"x402Version"`

	// Server identifies the service publishing the document.
	Server string `json:"server"`

	// Resources lists every priced route.
	Resources []DiscoveryResource `json:"resources"`
}

// DiscoveryResource describes one priced route for discovery.
type DiscoveryResource struct {
	// Method and Path identify the route.
	Method string `json:"method"`
	Path   string `json:"path"`

	// Description is the route's human-readable summary.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of successful responses.
	MimeType string `json:"mimeType"`

	// Accepts lists the payment terms, identical to what a 402
	// challenge for the route would carry (minus the expiry, which is
	// stamped per challenge).
	Accepts []PaymentRequirements `json:"accepts"`

	// Input shows a working invocation of the route.
	Input *DiscoveryInput `json:"input,omitempty"`

	// Output shows a sample successful response body.
	Output *DiscoveryOutput `json:"output,omitempty"`
}

// DiscoveryInput is an example request for a discovered route.
type DiscoveryInput struct {
	Type        string            `json:"type"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
}

// DiscoveryOutput is an example response for a discovered route.
type DiscoveryOutput struct {
	Type    string          `json:"type"`
	Example json.RawMessage `json:"example,omitempty"`
}

// NewDiscoveryHandler serves the discovery document built from the
// catalog. The catalog is immutable, so the document is assembled once.
// The route it is mounted on must stay unpriced.
func NewDiscoveryHandler(catalog *Catalog, serverName string) gin.HandlerFunc {
	doc := buildDiscoveryDocument(catalog, serverName)

	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=300")
		c.Header("Access-Control-Allow-Origin", "*")
		c.JSON(http.StatusOK, doc)
	}
}

func buildDiscoveryDocument(catalog *Catalog, serverName string) DiscoveryDocument {
	entries := catalog.Entries()
	resources := make([]DiscoveryResource, 0, len(entries))
	for _, e := range entries {
		resource := DiscoveryResource{
			Method:      e.Method,
			Path:        e.Path,
			Description: e.Description,
			MimeType:    "application/json",
			Accepts:     []PaymentRequirements{e.Requirements},
		}
		if len(e.InputExample) > 0 {
			resource.Input = &DiscoveryInput{Type: "http", QueryParams: e.InputExample}
		}
		if len(e.OutputExample) > 0 {
			resource.Output = &DiscoveryOutput{Type: "json", Example: e.OutputExample}
		}
		resources = append(resources, resource)
	}

	return DiscoveryDocument{
		X402Version: X402Version,
		Server:      serverName,
		Resources:   resources,
	}
}
