// Package cli wires the sync pipeline together: fetch newsletter emails,
// parse them into blocks, translate, and upload pages to the destination
// databases.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notionsync/internal/archive"
	"notionsync/internal/block"
	"notionsync/internal/config"
	"notionsync/internal/deepseek"
	"notionsync/internal/gmail"
	"notionsync/internal/history"
	"notionsync/internal/mail"
	"notionsync/internal/notion"
	"notionsync/internal/ticker"
	"notionsync/internal/translate"
	"notionsync/internal/version"
)

const (
	defaultTimeout = 90 * time.Second

	pendingStatus = "待处理"
)

type options struct {
	Feeds       string
	Archive     string
	State       string
	Timeout     time.Duration
	MaxEmails   int
	DryRun      bool
	ShowVersion bool
	ShowHelp    bool
}

func Run(args []string, stdout io.Writer, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.ShowHelp {
		return nil
	}
	if opts.ShowVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return nil
	}

	env, err := config.FromEnviron()
	if err != nil {
		return err
	}
	feeds, err := config.LoadFeeds(opts.Feeds)
	if err != nil {
		return err
	}

	runCtx, stopSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignal()

	httpClient := &http.Client{Timeout: opts.Timeout}

	mailbox, err := gmail.NewClient(runCtx, env.GmailToken, "")
	if err != nil {
		return err
	}

	maxEmails := opts.MaxEmails
	if maxEmails == 0 {
		maxEmails = env.MaxEmails
	}

	s := &syncer{
		source:       mailbox,
		store:        notion.NewClient(env.NotionToken, "", httpClient),
		databaseID:   env.NotionDatabaseID,
		sources:      feeds.Sources(),
		query:        feeds.GmailQuery(),
		extraTickers: feeds.Tickers,
		maxEmails:    maxEmails,
		dryRun:       opts.DryRun,
		now:          time.Now,
		stdout:       stdout,
		stderr:       stderr,
	}

	if env.SecondDatabaseEnabled() {
		s.mirror = notion.NewClient(env.NotionToken2, "", httpClient)
		s.mirrorID = env.NotionDatabaseID2
	}

	if env.TranslationEnabled {
		s.oracle = deepseek.NewClient(env.DeepSeekAPIKey, env.DeepSeekBaseURL, httpClient).Translate
	}

	if opts.State != "" {
		store, err := history.Open(opts.State)
		if err != nil {
			return err
		}
		defer store.Close()
		s.history = store
	}

	if opts.Archive != "" {
		s.archive = archive.NewWriter(opts.Archive)
	}

	return s.run(runCtx)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("notionsync", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := options{}
	fs.StringVar(&opts.Feeds, "feeds", "", "Path to feeds YAML file (default: built-in subscription list)")
	fs.StringVar(&opts.Archive, "archive", "", "Directory for local markdown copies of synced messages")
	fs.StringVar(&opts.State, "state", "", "Path to local sqlite state database for dedup across runs")
	fs.DurationVar(&opts.Timeout, "timeout", defaultTimeout, "HTTP timeout, e.g. 120s")
	fs.IntVar(&opts.MaxEmails, "max-emails", 0, "Maximum emails to fetch per run (default: MAX_EMAIL_LIMIT or 50)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Parse and report without writing to Notion")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version information and exit")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: notionsync [flags]")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Syncs subscribed newsletter emails from Gmail into Notion databases.")
		fmt.Fprintln(stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			opts.ShowHelp = true
			return opts, nil
		}
		return options{}, err
	}
	if opts.Timeout <= 0 {
		return options{}, errors.New("--timeout must be positive")
	}
	if opts.MaxEmails < 0 {
		return options{}, errors.New("--max-emails must not be negative")
	}

	return opts, nil
}

type messageSource interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]mail.Message, error)
}

type pageStore interface {
	ListPages(ctx context.Context, databaseID string) ([]notion.PageMeta, error)
	CreatePageWithBlocks(ctx context.Context, databaseID string, properties map[string]any, children []map[string]any) (string, error)
}

type syncer struct {
	source     messageSource
	store      pageStore
	databaseID string

	mirror   pageStore
	mirrorID string

	history *history.Store
	archive *archive.Writer
	oracle  translate.Oracle

	sources      map[string]string
	query        string
	extraTickers []string
	maxEmails    int
	dryRun       bool

	now    func() time.Time
	stdout io.Writer
	stderr io.Writer
}

func (s *syncer) run(ctx context.Context) error {
	existing, err := s.existingFingerprints(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "warning: listing existing pages failed: %v\n", err)
		existing = map[string]struct{}{}
	}
	_, _ = fmt.Fprintf(s.stdout, "existing articles: %d\n", len(existing))

	messages, err := s.source.Fetch(ctx, s.query, s.maxEmails)
	if err != nil {
		return fmt.Errorf("fetch emails: %w", err)
	}
	_, _ = fmt.Fprintf(s.stdout, "fetched %d emails\n", len(messages))

	synced := 0
	for i := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.syncMessage(ctx, &messages[i], existing) {
			synced++
		}
	}

	_, _ = fmt.Fprintf(s.stdout, "sync completed: %d new articles\n", synced)
	return nil
}

func (s *syncer) existingFingerprints(ctx context.Context) (map[string]struct{}, error) {
	pages, err := s.store.ListPages(ctx, s.databaseID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		existing[mail.Fingerprint(p.Title, p.Sender, p.Date)] = struct{}{}
	}
	return existing, nil
}

// syncMessage processes one email end to end and reports whether it created
// a page. Failures are logged and never abort the rest of the run.
func (s *syncer) syncMessage(ctx context.Context, msg *mail.Message, existing map[string]struct{}) bool {
	tag := mail.SenderTag(msg.From, s.sources)

	if mail.IsWelcome(msg.Subject) {
		_, _ = fmt.Fprintf(s.stdout, "skip welcome: %s\n", truncate(msg.Subject, 50))
		return false
	}

	eventTime := msg.EventTime(s.now)
	dateStr := eventTime.Format("2006-01-02T15:04")

	fingerprint := mail.Fingerprint(msg.Subject, tag, dateStr)
	if _, dup := existing[fingerprint]; dup {
		_, _ = fmt.Fprintf(s.stdout, "skip duplicate: %s\n", truncate(msg.Subject, 50))
		return false
	}
	if s.history != nil {
		seen, err := s.history.Has(fingerprint)
		if err != nil {
			_, _ = fmt.Fprintf(s.stderr, "warning: state lookup failed: %v\n", err)
		} else if seen {
			_, _ = fmt.Fprintf(s.stdout, "skip already synced: %s\n", truncate(msg.Subject, 50))
			return false
		}
	}

	articleURL := mail.ArticleURL(msg.BodyText)
	if articleURL == "" {
		articleURL = mail.ArticleURL(msg.BodyHTML)
	}
	msgType := mail.Classify(msg.Subject, articleURL)

	blocks := block.Deduplicate(block.FromHTML(msg.BodyHTML))
	if s.oracle != nil {
		translate.Apply(ctx, blocks, s.oracle, translate.DefaultOptions(), s.stdout)
	}

	tickers := ticker.Extract(msg.Subject, msg.BodyHTML, s.extraTickers)
	if len(tickers) > ticker.MaxMentions {
		tickers = tickers[:ticker.MaxMentions]
	}

	children := notion.SanitizeBlocks(notion.EncodeBlocks(blocks))

	props := notion.Properties{
		Title:   msg.Subject,
		Date:    dateStr,
		Sender:  tag,
		Type:    string(msgType),
		URL:     articleURL,
		Tickers: tickers,
	}

	if s.dryRun {
		_, _ = fmt.Fprintf(s.stdout, "dry-run: %s (%s, %d blocks, %d tickers)\n",
			truncate(msg.Subject, 50), tag, len(children), len(tickers))
		return false
	}

	primary := props
	primary.Status = pendingStatus
	if _, err := s.store.CreatePageWithBlocks(ctx, s.databaseID, primary.Encode(), children); err != nil {
		_, _ = fmt.Fprintf(s.stderr, "sync failed: %s: %v\n", truncate(msg.Subject, 50), err)
		return false
	}
	_, _ = fmt.Fprintf(s.stdout, "synced: %s\n", truncate(msg.Subject, 50))
	existing[fingerprint] = struct{}{}

	if s.history != nil {
		if err := s.history.Add(fingerprint, msg.Subject, tag); err != nil {
			_, _ = fmt.Fprintf(s.stderr, "warning: recording state failed: %v\n", err)
		}
	}

	if s.archive != nil {
		if _, err := s.archive.Save(msg.Subject, tag, eventTime, msg.BodyHTML); err != nil {
			_, _ = fmt.Fprintf(s.stderr, "warning: archive failed: %v\n", err)
		}
	}

	if s.mirror != nil {
		if _, err := s.mirror.CreatePageWithBlocks(ctx, s.mirrorID, props.Encode(), children); err != nil {
			_, _ = fmt.Fprintf(s.stderr, "mirror sync failed: %s: %v\n", truncate(msg.Subject, 50), err)
		} else {
			_, _ = fmt.Fprintf(s.stdout, "mirrored: %s\n", truncate(msg.Subject, 50))
		}
	}

	return true
}

func truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
