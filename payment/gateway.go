// Package payment talks to the card gateway: it signs and submits payment
// requests, checks their status and settles the matching invoice.
package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/shopspring/decimal"
)

// Gateway is the remote payment API.
type Gateway interface {
	Initiate(ctx context.Context, req GatewayRequest) (InitiateResponse, error)
	Status(ctx context.Context, paymentID, orderID string) (StatusResponse, error)
}

type GatewayRequest struct {
	OrderId        string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	PayerFirstName string
	PayerLastName  string
	PayerEmail     string
	PayerPhone     string
	PayerIP        string
}

// flexString decodes a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type gatewayError struct {
	ErrorMessage string `json:"error_message"`
	ErrorCode    any    `json:"error_code,omitempty"`
}

// InitiateResponse is the gateway's answer to /payment/initiate. Exactly one of
// RedirectURL/PaymentURL is set on success.
type InitiateResponse struct {
	Result       string         `json:"result"`
	RedirectURL  string         `json:"redirect_url"`
	PaymentURL   string         `json:"payment_url"`
	PaymentID    flexString     `json:"payment_id"`
	ErrorMessage string         `json:"error_message"`
	Errors       []gatewayError `json:"errors"`
}

// URL returns the page the payer must open, or "".
func (r InitiateResponse) URL() string {
	if r.RedirectURL != "" {
		return r.RedirectURL
	}
	return r.PaymentURL
}

// Message picks the most specific error text the gateway sent.
func (r InitiateResponse) Message() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	for _, e := range r.Errors {
		if e.ErrorMessage != "" {
			return e.ErrorMessage
		}
	}
	return "payment could not be initiated"
}

type StatusResponse struct {
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TransactionID flexString `json:"transaction_id"`
	Amount        flexString `json:"amount"`
	Currency      string     `json:"currency"`
}

// Normalized is the folded status, preferring payment_status over status.
func (r StatusResponse) Normalized() string {
	if r.PaymentStatus != "" {
		return Normalize(r.PaymentStatus)
	}
	return Normalize(r.Status)
}

type HTTPGateway struct {
	cfg    config.GatewayConfig
	client *circuit.HTTPClient
}

func NewHTTPGateway(cfg config.GatewayConfig, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: circuit.NewHTTPClient(cfg.Timeout, cfg.BreakerThreshold, client),
	}
}

func (g *HTTPGateway) endpoint(path string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + path
}

func (g *HTTPGateway) Initiate(ctx context.Context, req GatewayRequest) (InitiateResponse, error) {
	amount := utils.Amount(req.Amount)
	form := url.Values{}
	form.Set("action", "SALE")
	form.Set("client_key", g.cfg.MerchantID)
	form.Set("order_id", req.OrderId)
	form.Set("order_amount", amount)
	form.Set("order_currency", req.Currency)
	form.Set("order_description", req.Description)
	form.Set("payer_first_name", req.PayerFirstName)
	form.Set("payer_last_name", req.PayerLastName)
	form.Set("payer_email", req.PayerEmail)
	form.Set("payer_phone", req.PayerPhone)
	form.Set("payer_ip", req.PayerIP)
	form.Set("term_url_3ds", g.cfg.ReturnURL)
	form.Set("hash", Signature(req.OrderId, amount, req.Currency, req.Description, g.cfg.Secret))

	var out InitiateResponse
	if err := g.post(ctx, "/payment/initiate", form, &out); err != nil {
		return out, apperr.Wrap(apperr.Gateway, "payment.Initiate", err, "gateway request failed")
	}
	return out, nil
}

func (g *HTTPGateway) Status(ctx context.Context, paymentID, orderID string) (StatusResponse, error) {
	form := url.Values{}
	form.Set("merchant_id", g.cfg.MerchantID)
	form.Set("payment_id", paymentID)
	form.Set("order_id", orderID)

	var out StatusResponse
	if err := g.post(ctx, "/payment/status", form, &out); err != nil {
		return out, apperr.Wrap(apperr.Gateway, "payment.Status", err, "gateway status check failed")
	}
	return out, nil
}

// post sends a form and decodes the JSON body. Error statuses still carry a
// JSON body with the gateway's message, so they are decoded too.
func (g *HTTPGateway) post(ctx context.Context, path string, form url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return nil
}
