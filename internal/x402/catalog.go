package x402

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// RoutePrice binds a route to its payment terms. Immutable after the
// catalog is built.
type RoutePrice struct {
	// Method is the HTTP method, upper case.
	Method string

	// Path is the normalized path template.
	Path string

	// Description is included in challenges for this route.
	Description string

	// InputExample and OutputExample feed the discovery document.
	InputExample  map[string]string
	OutputExample json.RawMessage

	// Requirements are the payment terms a proof must satisfy.
	Requirements PaymentRequirements
}

// Catalog maps routes to payment terms. Lookup is read-only and safe
// for concurrent use; all mutation happens in NewCatalog.
type Catalog struct {
	entries map[string]*RoutePrice
}

// PriceSpec describes one priced route in human units before catalog
// construction turns it into atomic-unit requirements.
type PriceSpec struct {
	Method      string
	Path        string
	Description string

	// Price is the amount in whole-asset units, e.g. "0.001" for a
	// tenth of a cent of USDC.
	Price string

	// InputExample is a working set of query parameters for the route,
	// published in the discovery document so agents can self-serve.
	InputExample map[string]string

	// OutputExample is a sample JSON response body for the discovery
	// document.
	OutputExample json.RawMessage
}

// NewCatalog builds the price catalog for a single network/recipient
// binding. Two entries for the same method and normalized path are a
// configuration error surfaced here, at startup, never at request time.
func NewCatalog(network, payTo string, maxTimeoutSeconds int, specs []PriceSpec) (*Catalog, error) {
	chain, err := GetChainConfig(network)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(payTo) {
		return nil, fmt.Errorf("invalid recipient address: %s", payTo)
	}

	entries := make(map[string]*RoutePrice, len(specs))
	for _, spec := range specs {
		amount, err := atomicAmount(spec.Price, chain.Decimals)
		if err != nil {
			return nil, fmt.Errorf("route %s %s: %w", spec.Method, spec.Path, err)
		}

		method := strings.ToUpper(strings.TrimSpace(spec.Method))
		path := normalizePath(spec.Path)
		key := method + " " + path
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("duplicate price entry for %s", key)
		}

		entries[key] = &RoutePrice{
			Method:        method,
			Path:          path,
			Description:   spec.Description,
			InputExample:  spec.InputExample,
			OutputExample: spec.OutputExample,
			Requirements: PaymentRequirements{
				Scheme:            SchemeExact,
				Network:           network,
				Amount:            amount,
				Asset:             chain.USDCAddress,
				PayTo:             payTo,
				MaxTimeoutSeconds: maxTimeoutSeconds,
				Extra: map[string]interface{}{
					"name":    chain.EIP3009Name,
					"version": chain.EIP3009Version,
				},
			},
		}
	}

	return &Catalog{entries: entries}, nil
}

// PriceFor returns the price entry for a route, or nil when the route
// is unpriced (free).
func (c *Catalog) PriceFor(method, path string) *RoutePrice {
	return c.entries[strings.ToUpper(method)+" "+normalizePath(path)]
}

// Entries returns every priced route, ordered by method and path so
// enumeration is deterministic.
func (c *Catalog) Entries() []*RoutePrice {
	entries := make([]*RoutePrice, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Method < entries[j].Method
	})
	return entries
}

// normalizePath strips trailing slashes so "/weather/current" and
// "/weather/current/" resolve to the same entry. Query strings never
// reach here; matching is on the path template only.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// atomicAmount converts a human-readable decimal price to atomic units
// of the asset. "0.001" with 6 decimals becomes "1000".
func atomicAmount(price string, decimals int) (string, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(price), "$"))
	if err != nil {
		return "", fmt.Errorf("invalid price %q: %w", price, err)
	}
	if d.Sign() <= 0 {
		return "", fmt.Errorf("price must be positive, got %q", price)
	}
	atomic := d.Shift(int32(decimals))
	if !atomic.Equal(atomic.Truncate(0)) {
		return "", fmt.Errorf("price %q has more precision than the asset's %d decimals", price, decimals)
	}
	return atomic.StringFixed(0), nil
}
