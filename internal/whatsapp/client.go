package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lojasmm/wamenu/internal/menu"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v21.0"
	defaultListButton = "Ver opciones"
)

type Client struct {
	phoneNumberID string
	accessToken   string
	baseURL       string
	apiVersion    string
	http          *http.Client
	limiter       *rate.Limiter
}

type Option func(*Client)

// WithBaseURL points the client at another Graph API host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimiter throttles outbound sends; each send waits for one token.
// A nil limiter leaves sends unthrottled.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewSendLimiter allows perSecond sends with a burst of the same size.
// perSecond <= 0 returns nil, which disables throttling.
func NewSendLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

func NewClient(phoneNumberID, accessToken string, opts ...Option) *Client {
	c := &Client{
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		baseURL:       defaultBaseURL,
		apiVersion:    defaultAPIVersion,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PhoneNumberID returns the sending phone number id.
func (c *Client) PhoneNumberID() string { return c.phoneNumberID }

func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, buildTextRequest(to, body))
}

// SendButtons sends an interactive reply-button message. More than three
// buttons, or titles over 20 characters, are rejected without calling the API.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []menu.Button) error {
	msg, err := buildButtonsRequest(to, body, buttons)
	if err != nil {
		return err
	}
	return c.send(ctx, msg)
}

// SendList sends an interactive list: the list title goes in the header and
// its description in the body.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/messages/interactive-list-messages
func (c *Client) SendList(ctx context.Context, to string, list menu.List) error {
	msg, err := buildListRequest(to, list)
	if err != nil {
		return err
	}
	return c.send(ctx, msg)
}

func buildTextRequest(to, body string) SendMessageRequest {
	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &SendText{Body: body},
	}
}

func buildButtonsRequest(to, body string, buttons []menu.Button) (SendMessageRequest, error) {
	if len(buttons) > menu.MaxButtons {
		return SendMessageRequest{}, validationError(fmt.Errorf("%w: %d, maximum is %d", ErrTooManyButtons, len(buttons), menu.MaxButtons))
	}
	if err := menu.ValidateButtons(buttons); err != nil {
		return SendMessageRequest{}, validationError(err)
	}

	wa := make([]Button, len(buttons))
	for i, b := range buttons {
		wa[i] = Button{
			Type:  "reply",
			Reply: ButtonReply{ID: b.ID, Title: b.Title},
		}
	}
	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: body},
			Action: InteractiveAction{Buttons: wa},
		},
	}, nil
}

func buildListRequest(to string, list menu.List) (SendMessageRequest, error) {
	if len(list.Sections) == 0 {
		return SendMessageRequest{}, validationError(errors.New("list needs at least one section"))
	}

	sections := make([]Section, len(list.Sections))
	for i, s := range list.Sections {
		if s.Title == "" || len(s.Rows) == 0 {
			return SendMessageRequest{}, validationError(fmt.Errorf("section %d needs a title and rows", i))
		}
		rows := make([]SectionRow, len(s.Rows))
		for j, r := range s.Rows {
			if r.ID == "" || r.Title == "" {
				return SendMessageRequest{}, validationError(fmt.Errorf("section %d row %d needs id and title", i, j))
			}
			rows[j] = SectionRow{ID: r.ID, Title: r.Title, Description: r.Description}
		}
		sections[i] = Section{Title: s.Title, Rows: rows}
	}

	buttonText := list.ButtonText
	if buttonText == "" {
		buttonText = defaultListButton
	}

	interactive := &Interactive{
		Type: "list",
		Body: InteractiveBody{Text: list.Description},
		Action: InteractiveAction{
			Button:   buttonText,
			Sections: sections,
		},
	}
	if list.Title != "" {
		interactive.Header = &InteractiveHeader{Type: "text", Text: list.Title}
	}

	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}, nil
}

func (c *Client) send(ctx context.Context, msg SendMessageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return validationError(fmt.Errorf("marshaling message: %w", err))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &DeliveryError{Kind: ErrTransport, Err: fmt.Errorf("waiting for send slot: %w", err)}
		}
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &DeliveryError{Kind: ErrTransport, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeliveryError{Kind: ErrTransport, Err: fmt.Errorf("sending message: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, apiErrorMessage(respBody))
	}
	return nil
}

// apiErrorMessage extracts error.message from a Graph API error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var e apiErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
