// Package gmail fetches newsletter messages over the Gmail REST API using an
// OAuth2 token previously issued to the user.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"notionsync/internal/mail"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"
	tokenURL       = "https://oauth2.googleapis.com/token"
	maxErrBody     = 2048
)

// storedToken is the authorized-user JSON produced by Google's OAuth flow.
type storedToken struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient parses the stored token JSON and returns a client whose
// transport refreshes the access token when it expires.
func NewClient(ctx context.Context, tokenJSON string, baseURL string) (*Client, error) {
	var stored storedToken
	if err := json.Unmarshal([]byte(tokenJSON), &stored); err != nil {
		return nil, fmt.Errorf("parse Gmail token JSON: %w", err)
	}
	if stored.RefreshToken == "" && stored.AccessToken == "" {
		return nil, fmt.Errorf("Gmail token JSON has no usable credentials")
	}

	conf := &oauth2.Config{
		ClientID:     stored.ClientID,
		ClientSecret: stored.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
	}
	if stored.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, stored.Expiry); err == nil {
			tok.Expiry = expiry
		}
	}

	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: conf.Client(ctx, tok),
	}, nil
}

// newTestClient bypasses OAuth for httptest servers.
func newTestClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// Fetch lists the messages matching the query and downloads each in full.
func (c *Client) Fetch(ctx context.Context, query string, maxResults int) ([]mail.Message, error) {
	ids, err := c.list(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	messages := make([]mail.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.get(ctx, id)
		if err != nil {
			return messages, fmt.Errorf("fetch message %s: %w", id, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (c *Client) list(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.call(ctx, "/users/me/messages?"+params.Encode(), &parsed); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	ids := make([]string, 0, len(parsed.Messages))
	for _, m := range parsed.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

func (c *Client) get(ctx context.Context, id string) (mail.Message, error) {
	var parsed struct {
		ID           string      `json:"id"`
		InternalDate string      `json:"internalDate"`
		Payload      messagePart `json:"payload"`
	}
	if err := c.call(ctx, "/users/me/messages/"+id+"?format=full", &parsed); err != nil {
		return mail.Message{}, err
	}

	msg := mail.Message{
		ID:           parsed.ID,
		InternalDate: parsed.InternalDate,
	}
	for _, h := range parsed.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = html.UnescapeString(h.Value)
		case "from":
			msg.From = h.Value
		case "date":
			msg.DateHeader = h.Value
		}
	}

	walkParts(&parsed.Payload, &msg)
	return msg, nil
}

// walkParts descends the MIME tree collecting the last text/plain and
// text/html bodies seen.
func walkParts(part *messagePart, msg *mail.Message) {
	if part.Body.Data != "" {
		decoded := decodeBody(part.Body.Data)
		switch part.MimeType {
		case "text/plain":
			msg.BodyText = decoded
		case "text/html":
			msg.BodyHTML = decoded
		}
	}
	for i := range part.Parts {
		walkParts(&part.Parts[i], msg)
	}
}

func decodeBody(data string) string {
	if raw, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(raw)
	}
	if raw, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(raw)
	}
	return ""
}

func (c *Client) call(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build Gmail request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request Gmail API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read Gmail response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("Gmail API status %d: %s", resp.StatusCode, parseAPIError(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse Gmail response JSON: %w", err)
	}
	return nil
}

func parseAPIError(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return parsed.Error.Message
	}

	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrBody {
		snippet = snippet[:maxErrBody] + "..."
	}
	if snippet == "" {
		return "empty error response"
	}
	return snippet
}
