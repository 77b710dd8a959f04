// Package telephony wraps the Twilio REST API calls the service needs:
// placing outbound calls and reading recording transcriptions.
package telephony

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

const apiBaseURL = "https://api.twilio.com/2010-04-01"

type Client struct {
	httpClient *resty.Client
	accountSID string
	fromNumber string
}

// CallResource is the subset of Twilio's call resource the service reads.
type CallResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

type TranscriptionResource struct {
	SID               string `json:"sid"`
	Status            string `json:"status"`
	TranscriptionText string `json:"transcription_text"`
}

func NewClient(cfg environments.TwilioConfig) *Client {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		accountSID: cfg.AccountSID,
		fromNumber: cfg.FromNumber,
	}
}

// PlaceCall starts an outbound call whose conversation is driven by the
// voice webhooks at voiceURL. Returns the vendor call SID.
func (c *Client) PlaceCall(ctx context.Context, toNumber, voiceURL string) (*CallResource, error) {
	var call CallResource

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":     toNumber,
			"From":   c.fromNumber,
			"Url":    voiceURL,
			"Method": "POST",
		}).
		SetResult(&call).
		Post(fmt.Sprintf("/Accounts/%s/Calls.json", c.accountSID))

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to place call: %w", err)
	}

	logger.Infof("Call placement to %s completed in %v (status: %d)", toNumber, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d (expected 201), body: %s", resp.StatusCode(), resp.String())
	}

	return &call, nil
}

// GetTranscription fetches a recording transcription by SID. The text is
// only meaningful when Status is "completed".
func (c *Client) GetTranscription(ctx context.Context, transcriptionSID string) (*TranscriptionResource, error) {
	var transcription TranscriptionResource

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&transcription).
		Get(fmt.Sprintf("/Accounts/%s/Transcriptions/%s.json", c.accountSID, transcriptionSID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcription: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return &transcription, nil
}

func (c *Client) FromNumber() string {
	return c.fromNumber
}
