package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// tokenRefreshMargin is how long before expiry a cached OAuth token is
// considered stale.
const tokenRefreshMargin = 60 * time.Second

// PayPalConfig carries the processor credentials and the checkout redirect
// URLs. The URLs come from deployment config, never from client requests.
type PayPalConfig struct {
	BaseURL   string
	ClientID  string
	Secret    string
	Currency  string
	ReturnURL string
	CancelURL string
}

// PayPal implements Provider against the PayPal REST API.
type PayPal struct {
	cfg    PayPalConfig
	client *http.Client
	logger *log.Logger
	clock  quartz.Clock

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// PayPalOption configures the client.
type PayPalOption func(*PayPal)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) PayPalOption {
	return func(p *PayPal) { p.client = c }
}

// WithClock injects the clock used for token expiry.
func WithClock(clock quartz.Clock) PayPalOption {
	return func(p *PayPal) { p.clock = clock }
}

// NewPayPal creates a PayPal REST client.
func NewPayPal(cfg PayPalConfig, logger *log.Logger, opts ...PayPalOption) *PayPal {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	p := &PayPal{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.WithPrefix("paypal"),
		clock:  quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// accessToken returns a valid OAuth token, refreshing when the cached one
// is within the refresh margin of expiry.
func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.clock.Now().Before(p.tokenExpiry.Add(-tokenRefreshMargin)) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := p.do(req, &body); err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}

	p.token = body.AccessToken
	p.tokenExpiry = p.clock.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	p.logger.Debug("access token refreshed", "expiresIn", body.ExpiresIn)
	return p.token, nil
}

type paypalOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount struct {
			Value string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (o paypalOrder) toOrder() Order {
	out := Order{ID: o.ID, Status: o.Status}
	if len(o.PurchaseUnits) > 0 {
		if v, err := strconv.ParseFloat(o.PurchaseUnits[0].Amount.Value, 64); err == nil {
			out.Amount = money.FromFloat(v)
		}
	}
	for _, l := range o.Links {
		if l.Rel == "approve" {
			out.ApproveURL = l.Href
		}
	}
	return out
}

// CreateOrder opens a checkout order for the given amount.
func (p *PayPal) CreateOrder(ctx context.Context, amount money.Cents) (Order, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": p.cfg.Currency,
				"value":         amount.String(),
			},
		}},
		"application_context": map[string]string{
			"return_url": p.cfg.ReturnURL,
			"cancel_url": p.cfg.CancelURL,
		},
	}
	var body paypalOrder
	if err := p.post(ctx, "/v2/checkout/orders", payload, &body); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	p.logger.Info("order created", "order", body.ID, "amount", amount)
	return body.toOrder(), nil
}

// GetOrder fetches the order state.
func (p *PayPal) GetOrder(ctx context.Context, id string) (Order, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return Order{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/v2/checkout/orders/"+id, nil)
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var body paypalOrder
	if err := p.do(req, &body); err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return body.toOrder(), nil
}

// CaptureOrder captures an approved order.
func (p *PayPal) CaptureOrder(ctx context.Context, id string) (Order, error) {
	var body paypalOrder
	if err := p.post(ctx, "/v2/checkout/orders/"+id+"/capture", struct{}{}, &body); err != nil {
		return Order{}, fmt.Errorf("capture order: %w", err)
	}
	p.logger.Info("order captured", "order", id, "status", body.Status)
	return body.toOrder(), nil
}

// SendPayout pushes a single payout item to the receiver's email.
func (p *PayPal) SendPayout(ctx context.Context, receiver string, amount money.Cents) (string, error) {
	payload := map[string]any{
		"sender_batch_header": map[string]string{
			"email_subject": "You have a payout",
		},
		"items": []map[string]any{{
			"recipient_type": "EMAIL",
			"receiver":       receiver,
			"amount": map[string]string{
				"currency": p.cfg.Currency,
				"value":    amount.String(),
			},
		}},
	}
	var body struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
		} `json:"batch_header"`
	}
	if err := p.post(ctx, "/v1/payments/payouts", payload, &body); err != nil {
		return "", fmt.Errorf("send payout: %w", err)
	}
	p.logger.Info("payout sent", "batch", body.BatchHeader.PayoutBatchID, "amount", amount)
	return body.BatchHeader.PayoutBatchID, nil
}

func (p *PayPal) post(ctx context.Context, path string, payload, out any) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *PayPal) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("paypal %s: %s", resp.Status, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
