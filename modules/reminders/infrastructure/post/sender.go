// Package post sends reminders as printed letters through a direct mail API.
package post

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

type Options struct {
	URL     string
	APIKey  string
	Test    bool
	Timeout time.Duration
	Client  *http.Client
}

type Sender struct {
	url    string
	apiKey string
	test   bool
	http   *http.Client
}

type recipient struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	PostTown     string `json:"post_town,omitempty"`
	PostCode     string `json:"post_code"`
	Country      string `json:"country"`
}

type letter struct {
	Recipient recipient `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Reference string    `json:"reference"`
	Test      bool      `json:"test"`
}

func NewSender(opts Options) *Sender {
	if opts.Client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.Client = &http.Client{Timeout: timeout}
	}
	return &Sender{
		url:    strings.TrimRight(opts.URL, "/") + "/letters",
		apiKey: opts.APIKey,
		test:   opts.Test,
		http:   opts.Client,
	}
}

func (s *Sender) Notify(ctx context.Context, r *reminder.Reminder, c *client.Client) error {
	if !c.HasPostalAddress() {
		return reminder.Permanent(reminder.ErrNoRecipient)
	}
	country := c.Country
	if country == "" {
		country = "GB"
	}
	body, err := json.Marshal(letter{
		Recipient: recipient{
			Name:         c.Name,
			AddressLine1: c.AddressLine1,
			AddressLine2: c.AddressLine2,
			PostTown:     c.PostTown,
			PostCode:     c.PostCode,
			Country:      country,
		},
		Subject:   r.Subject,
		Body:      r.Body,
		Reference: r.ID.String(),
		Test:      s.test,
	})
	if err != nil {
		return errors.Wrap(err, "encode letter")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return reminder.Permanent(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send letter")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("post api responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return reminder.Permanent(err)
	}
	return err
}
