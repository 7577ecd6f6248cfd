// Package config reads the sync's environment credentials and the feed
// subscription list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultMaxEmails = 50

// Env holds every credential and switch the sync reads from the
// environment.
type Env struct {
	NotionToken      string
	NotionDatabaseID string

	// Optional second destination. Enabled only when both are set.
	NotionToken2      string
	NotionDatabaseID2 string

	GmailToken string

	DeepSeekAPIKey  string
	DeepSeekBaseURL string

	TranslationEnabled bool

	// MAX_EMAIL_LIMIT, defaulting to 50.
	MaxEmails int
}

// FromEnviron loads Env, failing on any missing required variable.
func FromEnviron() (Env, error) {
	env := Env{
		NotionToken:       strings.TrimSpace(os.Getenv("NOTION_API_TOKEN")),
		NotionDatabaseID:  strings.TrimSpace(os.Getenv("NOTION_DATABASE_ID")),
		NotionToken2:      strings.TrimSpace(os.Getenv("NOTION_API_TOKEN_2")),
		NotionDatabaseID2: strings.TrimSpace(os.Getenv("NOTION_DATABASE_ID_2")),
		GmailToken:        strings.TrimSpace(os.Getenv("GMAIL_TOKEN")),
		DeepSeekAPIKey:    strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
		DeepSeekBaseURL:   strings.TrimSpace(os.Getenv("DEEPSEEK_BASE_URL")),
	}

	if env.NotionToken == "" {
		return Env{}, fmt.Errorf("NOTION_API_TOKEN is required")
	}
	if env.NotionDatabaseID == "" {
		return Env{}, fmt.Errorf("NOTION_DATABASE_ID is required")
	}
	if env.GmailToken == "" {
		return Env{}, fmt.Errorf("GMAIL_TOKEN is required")
	}

	enabled := strings.ToLower(strings.TrimSpace(os.Getenv("ENABLE_TRANSLATION")))
	env.TranslationEnabled = (enabled == "" || enabled == "true") && env.DeepSeekAPIKey != ""

	env.MaxEmails = defaultMaxEmails
	if raw := strings.TrimSpace(os.Getenv("MAX_EMAIL_LIMIT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Env{}, fmt.Errorf("MAX_EMAIL_LIMIT must be a positive integer, got %q", raw)
		}
		env.MaxEmails = n
	}

	return env, nil
}

// SecondDatabaseEnabled reports whether the optional mirror destination is
// fully configured.
func (e Env) SecondDatabaseEnabled() bool {
	return e.NotionToken2 != "" && e.NotionDatabaseID2 != ""
}
