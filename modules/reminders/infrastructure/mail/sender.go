// Package mail delivers reminders through a transactional email HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

type Options struct {
	URL    string
	From   string
	APIKey string

	// Client credentials are used instead of APIKey when TokenURL is set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	Timeout time.Duration
	Client  *http.Client
}

type Sender struct {
	url  string
	from string
	http *http.Client
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type message struct {
	From    address   `json:"from"`
	To      []address `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	Tags    []string  `json:"tags,omitempty"`
}

func NewSender(opts Options) *Sender {
	base := opts.Client
	if base == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		base = &http.Client{Timeout: timeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	var httpClient *http.Client
	if opts.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		httpClient = cc.Client(ctx)
	} else {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.APIKey,
			TokenType:   "Bearer",
		}))
	}
	httpClient.Timeout = base.Timeout
	return &Sender{url: opts.URL, from: opts.From, http: httpClient}
}

func (s *Sender) Notify(ctx context.Context, r *reminder.Reminder, c *client.Client) error {
	if c.Email == "" {
		return reminder.Permanent(reminder.ErrNoRecipient)
	}
	body, err := json.Marshal(message{
		From:    address{Email: s.from},
		To:      []address{{Email: c.Email, Name: c.Name}},
		Subject: r.Subject,
		Text:    r.Body,
		Tags:    []string{"reminder", string(r.Kind)},
	})
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return reminder.Permanent(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", r.ID.String())

	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send email")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("email api responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return reminder.Permanent(err)
	}
	return err
}
