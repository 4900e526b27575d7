package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Initiator asks the game side to open its connection to our listener.
type Initiator interface {
	Initiate(ctx context.Context, port int) error
}

// NoopInitiator is used when the game connects on its own.
type NoopInitiator struct{}

func (NoopInitiator) Initiate(ctx context.Context, port int) error { return nil }

// RelayInitiator registers the listener port with a relay service, retrying until
// the relay accepts it or ctx is cancelled.
type RelayInitiator struct {
	URL    string
	Token  string
	Retry  time.Duration
	Client *http.Client
}

type relayRequest struct {
	Port int `json:"port"`
}

func (r *RelayInitiator) Initiate(ctx context.Context, port int) error {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	body, err := json.Marshal(relayRequest{Port: port})
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		status, err := r.post(ctx, client, body)
		switch {
		case err == nil && status/100 == 2:
			log.Printf("INITIATOR: relay accepted port %d", port)
			return nil
		case err == nil && (status == http.StatusUnauthorized || status == http.StatusForbidden):
			return fmt.Errorf("relay rejected the access token (%d)", status)
		case err != nil:
			log.Printf("INITIATOR: attempt %d failed: %v", attempt, err)
		default:
			log.Printf("INITIATOR: attempt %d: relay answered %d", attempt, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Retry):
		}
	}
}

func (r *RelayInitiator) post(ctx context.Context, client *http.Client, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
