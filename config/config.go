package config

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "gmail"
	tableFormat = `gmailparse is configured via the environment (or a .env file). The
following environment variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

// Root holds the whole configuration.
type Root struct {
	User             string        `required:"true" default:"me" desc:"Mailbox user id"`
	ClientID         string        `envconfig:"client_id" desc:"OAuth client id (refresh token flow)"`
	ClientSecret     string        `envconfig:"client_secret" desc:"OAuth client secret (refresh token flow)"`
	RefreshToken     string        `envconfig:"refresh_token" desc:"OAuth refresh token (refresh token flow)"`
	CredentialsFile  string        `split_words:"true" default:"credentials.json" desc:"OAuth client file (browser flow)"`
	TokenFile        string        `split_words:"true" default:"token.json" desc:"Cached token file (browser flow)"`
	TokenStore       string        `split_words:"true" default:"file" desc:"Where the browser flow token lives: file or keyring"`
	SearchLimit      int           `split_words:"true" default:"30" desc:"Maximum messages returned by a full search"`
	FetchConcurrency int           `split_words:"true" default:"4" desc:"Messages fetched in parallel"`
	PollInterval     time.Duration `split_words:"true" default:"30s" desc:"Watch mode poll interval"`
	WatchQuery       string        `split_words:"true" default:"in:inbox -in:draft" desc:"Watch mode search query"`
	FilterFile       string        `split_words:"true" default:"config/filters.json" desc:"Sender/keyword filter file"`
	LogLevel         string        `split_words:"true" default:"info" desc:"debug, info, warn, or error"`
}

// HasRefreshToken reports whether the refresh token flow is fully configured.
func (r *Root) HasRefreshToken() bool {
	return r.ClientID != "" && r.ClientSecret != "" && r.RefreshToken != ""
}

// Process loads .env (if present) and parses the configuration from the
// environment.
func Process() (*Root, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	c := &Root{}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, err
	}
	// Older .env files spell the OAuth keys in lower case.
	for key, field := range map[string]*string{
		"client_id":     &c.ClientID,
		"client_secret": &c.ClientSecret,
		"refresh_token": &c.RefreshToken,
	} {
		if *field == "" {
			*field = os.Getenv(key)
		}
	}
	if c.SearchLimit < 1 {
		return nil, fmt.Errorf("GMAIL_SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	if c.FetchConcurrency < 1 {
		return nil, fmt.Errorf("GMAIL_FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.PollInterval <= 0 {
		return nil, fmt.Errorf("GMAIL_POLL_INTERVAL must be positive, got %v", c.PollInterval)
	}
	return c, nil
}

// Usage prints the envconfig usage table to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
