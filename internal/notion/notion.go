// Package notion is a minimal client for the Notion REST API covering what
// the sync needs: querying a database for existing pages and creating pages
// with arbitrarily many content blocks.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
	maxErrBody     = 2048

	// The API rejects more than 100 children per request.
	maxChildrenPerRequest = 100
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string, baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// PageMeta is the identifying slice of an existing database page, enough to
// rebuild its dedup fingerprint.
type PageMeta struct {
	Title  string
	Sender string
	Date   string
}

// ListPages walks the whole database and returns the metadata of every page.
func (c *Client) ListPages(ctx context.Context, databaseID string) ([]PageMeta, error) {
	var (
		pages  []PageMeta
		cursor string
	)

	for {
		body := map[string]any{}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var parsed struct {
			Results []struct {
				Properties struct {
					Name struct {
						Title []struct {
							Text struct {
								Content string `json:"content"`
							} `json:"text"`
						} `json:"title"`
					} `json:"Name"`
					Sender struct {
						Select struct {
							Name string `json:"name"`
						} `json:"select"`
					} `json:"发件人"`
					Date struct {
						Date struct {
							Start string `json:"start"`
						} `json:"date"`
					} `json:"Date"`
				} `json:"properties"`
			} `json:"results"`
			HasMore    bool   `json:"has_more"`
			NextCursor string `json:"next_cursor"`
		}

		if err := c.call(ctx, http.MethodPost, "/databases/"+databaseID+"/query", body, &parsed); err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		for _, page := range parsed.Results {
			meta := PageMeta{
				Sender: page.Properties.Sender.Select.Name,
				Date:   page.Properties.Date.Date.Start,
			}
			if len(page.Properties.Name.Title) > 0 {
				meta.Title = page.Properties.Name.Title[0].Text.Content
			}
			if meta.Title != "" && meta.Sender != "" && meta.Date != "" {
				pages = append(pages, meta)
			}
		}

		if !parsed.HasMore || parsed.NextCursor == "" {
			return pages, nil
		}
		cursor = parsed.NextCursor
	}
}

// CreatePage creates one database page carrying at most the first request's
// worth of children and returns the new page ID.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]any, children []map[string]any) (string, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": properties,
	}
	if len(children) > 0 {
		if len(children) > maxChildrenPerRequest {
			children = children[:maxChildrenPerRequest]
		}
		body["children"] = children
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/pages", body, &parsed); err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("create page: response missing page id")
	}
	return parsed.ID, nil
}

// AppendBlocks appends up to one request's worth of children to a page.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, children []map[string]any) error {
	if len(children) > maxChildrenPerRequest {
		children = children[:maxChildrenPerRequest]
	}
	body := map[string]any{"children": children}
	if err := c.call(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", body, nil); err != nil {
		return fmt.Errorf("append blocks: %w", err)
	}
	return nil
}

// CreatePageWithBlocks creates a page and appends every remaining block in
// order, chunked to the API's per-request limit.
func (c *Client) CreatePageWithBlocks(ctx context.Context, databaseID string, properties map[string]any, children []map[string]any) (string, error) {
	first := children
	if len(first) > maxChildrenPerRequest {
		first = first[:maxChildrenPerRequest]
	}

	pageID, err := c.CreatePage(ctx, databaseID, properties, first)
	if err != nil {
		return "", err
	}

	remaining := children[len(first):]
	for len(remaining) > 0 {
		batch := remaining
		if len(batch) > maxChildrenPerRequest {
			batch = batch[:maxChildrenPerRequest]
		}
		if err := c.AppendBlocks(ctx, pageID, batch); err != nil {
			return pageID, err
		}
		remaining = remaining[len(batch):]
	}

	return pageID, nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal Notion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build Notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request Notion API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read Notion response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("Notion API status %d: %s", resp.StatusCode, parseAPIError(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse Notion response JSON: %w", err)
	}
	return nil
}

func parseAPIError(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Message) != "" {
		return parsed.Message
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
