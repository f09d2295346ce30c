package payment

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
)

const (
	FallbackIP      = "127.0.0.1"
	placeholderName = "Customer"
)

// SplitName splits a display name into first token and remainder, filling
// blanks with a placeholder.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return placeholderName, placeholderName
	case 1:
		return parts[0], placeholderName
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// IPResolver finds the public address reported to the gateway.
type IPResolver interface {
	PublicIP(ctx context.Context) string
}

// IPLookup asks an ipify-style endpoint ({"ip": "..."}). Any failure yields
// FallbackIP, so payment initiation never waits on it for long.
type IPLookup struct {
	url    string
	client *circuit.HTTPClient
}

func NewIPLookup(lookupURL string, client *http.Client) *IPLookup {
	if client == nil {
		client = &http.Client{}
	}
	return &IPLookup{url: lookupURL, client: circuit.NewHTTPClient(3*time.Second, 3, client)}
}

func (l *IPLookup) PublicIP(ctx context.Context) string {
	if l == nil || l.url == "" {
		return FallbackIP
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return FallbackIP
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return FallbackIP
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FallbackIP
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return FallbackIP
	}
	if net.ParseIP(strings.TrimSpace(body.IP)) == nil {
		return FallbackIP
	}
	return strings.TrimSpace(body.IP)
}
