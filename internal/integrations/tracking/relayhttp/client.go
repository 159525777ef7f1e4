package relayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelBox/internal/integrations/tracking"
	"github.com/BearBump/ParcelBox/internal/models"
)

// Client ходит в tracking-relay (тот самый node-бэкенд с POST /api/track),
// который проксирует API перевозчиков и отдаёт нормализованный статус.
type Client struct {
	baseURL string
	httpc   *http.Client

	// Потолок ретраев транзиентных ошибок (сеть, 5xx).
	maxElapsed time.Duration
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxElapsed: 15 * time.Second,
	}
}

type trackRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

type trackResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Data    *trackData `json:"data,omitempty"`
}

type trackData struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	LastUpdate    string `json:"lastUpdate"`
	Location      string `json:"location"`
	DeliveredDate string `json:"deliveredDate"`
	Source        string `json:"source"`
	IsReal        bool   `json:"isReal"`
}

func (c *Client) Fetch(ctx context.Context, carrierCode, trackingNumber string) (tracking.Result, error) {
	body, err := json.Marshal(trackRequest{TrackingNumber: trackingNumber, Carrier: carrierCode})
	if err != nil {
		return tracking.Result{}, errors.Wrap(err, "marshal track request")
	}

	var r trackResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/track", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "new request"))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return errors.Wrap(err, "do request")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode/100 == 2:
		case resp.StatusCode/100 == 5:
			return fmt.Errorf("relay http %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("relay http %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return backoff.Permanent(errors.Wrap(err, "decode relay response"))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return tracking.Result{}, err
	}

	if !r.Success || r.Data == nil {
		msg := r.Error
		if msg == "" {
			msg = "no tracking data available"
		}
		return tracking.Result{}, errors.New("relay: " + msg)
	}

	out := tracking.Result{
		Status:      normalizeStatus(r.Data.Status),
		Description: r.Data.Message,
		Source:      r.Data.Source,
	}
	if out.Source == "" {
		out.Source = "Relay API"
	}
	if r.Data.Location != "" {
		loc := r.Data.Location
		out.Location = &loc
	}
	if t, ok := parseRelayTime(r.Data.DeliveredDate); ok {
		out.DeliveredAt = &t
	} else if out.Status == models.StatusDelivered {
		if t, ok := parseRelayTime(r.Data.LastUpdate); ok {
			out.DeliveredAt = &t
		}
	}
	return out, nil
}

// Ping проверяет доступность relay; используется на старте для выбора
// источника статусов.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/track/ping", nil)
	if err != nil {
		return false, errors.Wrap(err, "new request")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false, nil
	}
	var pong struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pong); err != nil {
		return false, errors.Wrap(err, "decode ping")
	}
	return pong.Available, nil
}

// Capabilities — перевозчики, для которых у relay настроены реальные API-ключи.
// Для остальных он отвечает заглушкой с isReal=false.
type Capabilities struct {
	Carriers []string `json:"carriers"`
	Features []string `json:"features"`
}

func (c *Client) Capabilities(ctx context.Context) (Capabilities, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/track/capabilities", nil)
	if err != nil {
		return Capabilities{}, errors.Wrap(err, "new request")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Capabilities{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Capabilities{}, fmt.Errorf("relay http %d", resp.StatusCode)
	}
	var caps Capabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return Capabilities{}, errors.Wrap(err, "decode capabilities")
	}
	return caps, nil
}

// Relay отдаёт статусы в своей номенклатуре (in_transit, pending, exception);
// приводим к каноническому enum.
func normalizeStatus(s string) string {
	switch s {
	case "delivered":
		return models.StatusDelivered
	case "in_transit", "in-transit", "shipped", "processing":
		return models.StatusInTransit
	case "out_for_delivery", "out-for-delivery":
		return models.StatusOutForDelivery
	case "exception", "unavailable":
		return models.StatusUnavailable
	default:
		return models.StatusUnknown
	}
}

func parseRelayTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
