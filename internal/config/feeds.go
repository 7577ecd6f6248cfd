package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Feed is one subscribed newsletter: the sender address the mailbox query
// filters on and the display tag pages are labeled with.
type Feed struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// Feeds is the subscription list plus subject phrases whose messages the
// mailbox query excludes outright. Tickers extends the known symbol
// universe with publication-specific names.
type Feeds struct {
	Feeds   []Feed   `yaml:"feeds"`
	Exclude []string `yaml:"exclude"`
	Tickers []string `yaml:"tickers"`
}

// DefaultFeeds returns the built-in subscription list used when no feeds
// file is given.
func DefaultFeeds() Feeds {
	return Feeds{
		Feeds: []Feed{
			{Address: "lobwedge@substack.com", Name: "LW Research"},
			{Address: "robonomics@substack.com", Name: "Robonomics"},
			{Address: "purpledrink@substack.com", Name: "Purple Drinks"},
			{Address: "nathanbancroft@substack.com", Name: "Nathan"},
			{Address: "jamesbulltard@substack.com", Name: "Bulltrad"},
			{Address: "globalsemiresearch@substack.com", Name: "GlobalSemiresearch"},
			{Address: "wukong123@substack.com", Name: "Wukong"},
			{Address: "robs@substack.com", Name: "Robs"},
			{Address: "oreo521@substack.com", Name: "Oreo"},
			{Address: "franktrading@substack.com", Name: "Frank"},
			{Address: "tmtbreakout@substack.com", Name: "TMTB"},
			{Address: "semianalysis@substack.com", Name: "SemiAnalysis"},
			{Address: "capitalflows@substack.com", Name: "CapitalFlows"},
			{Address: "sleepysol@substack.com", Name: "SleepySol"},
			{Address: "globaltechresearch@substack.com", Name: "GlobalTechResearch"},
			{Address: "citrini@substack.com", Name: "Citrini"},
		},
		Exclude: []string{
			"sign in to substack",
			"upgrade to a paid subscription",
			"your payment receipt from",
		},
	}
}

// LoadFeeds reads a feeds YAML file, or returns the defaults when path is
// empty.
func LoadFeeds(path string) (Feeds, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultFeeds(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Feeds{}, fmt.Errorf("read feeds file: %w", err)
	}

	var feeds Feeds
	if err := yaml.Unmarshal(raw, &feeds); err != nil {
		return Feeds{}, fmt.Errorf("parse feeds file: %w", err)
	}
	if len(feeds.Feeds) == 0 {
		return Feeds{}, fmt.Errorf("feeds file %s lists no feeds", path)
	}
	for i, f := range feeds.Feeds {
		if strings.TrimSpace(f.Address) == "" {
			return Feeds{}, fmt.Errorf("feeds file %s: feed %d has no address", path, i+1)
		}
	}
	return feeds, nil
}

// Sources maps sender addresses to display tags.
func (f Feeds) Sources() map[string]string {
	sources := make(map[string]string, len(f.Feeds))
	for _, feed := range f.Feeds {
		name := feed.Name
		if name == "" {
			name = feed.Address
		}
		sources[feed.Address] = name
	}
	return sources
}

// GmailQuery builds the mailbox search that matches all subscribed senders
// and filters out administrative messages.
func (f Feeds) GmailQuery() string {
	addresses := make([]string, 0, len(f.Feeds))
	for _, feed := range f.Feeds {
		addresses = append(addresses, feed.Address)
	}

	var query strings.Builder
	query.WriteString("from:(")
	query.WriteString(strings.Join(addresses, " OR "))
	query.WriteString(")")
	for _, phrase := range f.Exclude {
		fmt.Fprintf(&query, " -%q", phrase)
	}
	return query.String()
}
