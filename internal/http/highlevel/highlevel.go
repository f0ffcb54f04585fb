package highlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/planetcalm/petmap/internal/model"
	"github.com/rs/zerolog"
)

const forwardTimeout = 10 * time.Second

// Client forwards created members to a GoHighLevel inbound webhook so the
// CRM can create a contact. The forward is best effort: the one call site
// logs and discards the error, and a failure never affects the pin that
// triggered it.
type Client struct {
	WebhookURL string
	Client     *http.Client
	Log        zerolog.Logger
}

func New(webhookURL string, log zerolog.Logger) *Client {
	return &Client{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: forwardTimeout},
		Log:        log,
	}
}

// contactPayload is the flat shape HighLevel expects. am_id carries
// affiliate attribution.
type contactPayload struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	PetName   string `json:"pet_name"`
	PetType   string `json:"pet_type"`
	PetStatus string `json:"pet_status"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	AMID      string `json:"am_id"`
}

// ForwardMember pushes a member to the CRM webhook. Members without an
// email are skipped silently since HighLevel needs an identifier.
func (c *Client) ForwardMember(ctx context.Context, member model.Member) error {
	if c == nil || c.WebhookURL == "" {
		return nil
	}
	if member.Email == "" {
		c.Log.Debug().Str("pet_name", member.PetName).Msg("skipping CRM forward, no email")
		return nil
	}

	payload := contactPayload{
		FirstName: member.FirstName,
		Email:     member.Email,
		PetName:   member.PetName,
		PetType:   member.PetType,
		PetStatus: member.PetStatus,
		City:      member.Location.City,
		State:     member.Location.State,
		Country:   member.Location.Country,
		AMID:      member.AffiliateID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal CRM payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create CRM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute CRM request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("CRM webhook returned status %d", resp.StatusCode)
	}

	c.Log.Info().Str("email", member.Email).Int("status", resp.StatusCode).Msg("forwarded member to CRM")
	return nil
}
