package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Client relays reservation and payment confirmations to the notification
// collaborator (best-effort, never blocks the API path).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a relay client. With an empty baseURL all sends are no-ops.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// ReservationPayload is the body of POST /notifications/reservation.
type ReservationPayload struct {
	Event       string  `json:"event"`
	RaffleName  string  `json:"raffle_name"`
	Numbers     []int   `json:"numbers"`
	ClientName  string  `json:"client_name"`
	ClientPhone string  `json:"client_phone"`
	TotalPrice  float64 `json:"total_price"`
}

// SendReservation posts one confirmation to the notification service.
func (c *Client) SendReservation(ctx context.Context, payload ReservationPayload) {
	if c.baseURL == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify: marshal: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications/reservation", bytes.NewReader(body))
	if err != nil {
		log.Printf("notify: new request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("notify: request: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("notify: status %d for %s notification", resp.StatusCode, payload.Event)
	}
}

// SendReservationAsync runs SendReservation in its own goroutine so the API
// response never waits on the relay.
func (c *Client) SendReservationAsync(payload ReservationPayload) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.SendReservation(ctx, payload)
	}()
}
