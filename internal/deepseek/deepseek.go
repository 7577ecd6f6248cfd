// Package deepseek implements the chat-completions client used to translate
// batches of newsletter text into Simplified Chinese.
package deepseek

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
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"
	maxErrBody     = 2048

	temperature = 0.3
	maxTokens   = 8000
)

const systemPrompt = "You are a professional translator for finance and technology newsletters. " +
	"Translate each numbered English segment into Simplified Chinese. " +
	"Keep company names, tickers, product names, and numbers unchanged. " +
	"Use standard financial terminology. " +
	"The input lists segments as [P1], [P2], and so on; answer with one line per segment, " +
	"starting each line with the same [Pn] marker. " +
	"Use every marker exactly once and add no commentary."

type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey string, baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     apiKey,
		endpoint:   baseURL + "/v1/chat/completions",
		model:      defaultModel,
		httpClient: httpClient,
	}
}

// Translate sends one batch of texts and returns the model's raw marker
// response. Callers parse the markers; a transport or API error fails the
// whole batch.
func (c *Client) Translate(ctx context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(texts)},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal DeepSeek request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build DeepSeek request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request DeepSeek API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read DeepSeek response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("DeepSeek API status %d: %s", resp.StatusCode, parseAPIError(respBody))
	}

	return extractContent(respBody)
}

func buildUserPrompt(texts []string) string {
	var builder strings.Builder
	builder.WriteString("Translate the following segments:\n\n")
	for i, text := range texts {
		fmt.Fprintf(&builder, "[P%d] %s\n", i+1, text)
	}
	return builder.String()
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

func extractContent(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse DeepSeek response JSON: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("DeepSeek response has no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("DeepSeek response content is empty")
	}
	return content, nil
}
