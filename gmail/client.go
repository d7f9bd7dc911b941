package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bassamadnan/gmailparse/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrUnexpectedShape means the API answered with JSON missing a required field.
	ErrUnexpectedShape = errors.New("unexpected response shape")

	// ErrTooManyMessages means a search matched more messages than the limit.
	ErrTooManyMessages = errors.New("too many messages")

	errNoRefreshToken = errors.New("no refresh token configured")
)

const shortBase64Limit = 30

// Client talks to the Gmail REST API for a single mailbox.
type Client struct {
	srv          *gm.Service
	oauthConfig  *oauth2.Config
	refreshToken string
	user         string
	searchLimit  int
	concurrency  int
}

// NewClient authenticates and returns a Client. The refresh token flow is used
// when cfg carries a client id, secret and refresh token; otherwise the
// credentials file drives the browser flow, with the token kept in the
// configured token store.
func NewClient(ctx context.Context, cfg *config.Root) (*Client, error) {
	var (
		oauthConfig *oauth2.Config
		tok         *oauth2.Token
	)
	if cfg.HasRefreshToken() {
		oauthConfig = refreshTokenConfig(cfg.ClientID, cfg.ClientSecret)
		tok = &oauth2.Token{RefreshToken: cfg.RefreshToken}
	} else {
		store, err := openTokenStore(cfg.TokenStore, cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		oauthConfig, tok, err = browserFlowToken(ctx, cfg.CredentialsFile, store)
		if err != nil {
			return nil, err
		}
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, tok))
	srv, err := gm.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	c := NewClientWithService(srv, cfg)
	c.oauthConfig = oauthConfig
	c.refreshToken = tok.RefreshToken
	return c, nil
}

// NewClientWithService wraps an existing service. RefreshAccessToken is not
// available on such a client.
func NewClientWithService(srv *gm.Service, cfg *config.Root) *Client {
	c := &Client{
		srv:         srv,
		user:        "me",
		searchLimit: 30,
		concurrency: 4,
	}
	if cfg != nil {
		if cfg.User != "" {
			c.user = cfg.User
		}
		if cfg.SearchLimit > 0 {
			c.searchLimit = cfg.SearchLimit
		}
		if cfg.FetchConcurrency > 0 {
			c.concurrency = cfg.FetchConcurrency
		}
	}
	return c
}

// RefreshAccessToken exchanges the refresh token for a fresh access token.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	if c.oauthConfig == nil || c.refreshToken == "" {
		return "", errNoRefreshToken
	}
	tok, err := c.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token response has no access_token", ErrUnexpectedShape)
	}
	return tok.AccessToken, nil
}

// Labels lists the mailbox labels.
func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	resp, err := c.srv.Users.Labels.List(c.user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]Label, 0, len(resp.Labels))
	for i, l := range resp.Labels {
		if l == nil || l.Id == "" || l.Name == "" {
			return nil, fmt.Errorf("%w: label %d has no id or name", ErrUnexpectedShape, i)
		}
		labels = append(labels, labelFromAPI(l))
	}
	return labels, nil
}

// SearchMailIDs returns every message matching query, newest first.
func (c *Client) SearchMailIDs(ctx context.Context, query string) ([]MessageRef, error) {
	refs := []MessageRef{}
	err := c.srv.Users.Messages.List(c.user).Q(query).Pages(ctx, func(resp *gm.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			if m == nil || m.Id == "" {
				return fmt.Errorf("%w: message reference has no id", ErrUnexpectedShape)
			}
			refs = append(refs, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return refs, nil
}

// RecentMailIDs returns at most max of the newest messages matching query.
func (c *Client) RecentMailIDs(ctx context.Context, query string, max int64) ([]MessageRef, error) {
	resp, err := c.srv.Users.Messages.List(c.user).Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", query, err)
	}
	refs := make([]MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.Id == "" {
			return nil, fmt.Errorf("%w: message reference has no id", ErrUnexpectedShape)
		}
		refs = append(refs, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// SearchMails fetches and assembles every message matching query. It refuses
// searches matching more messages than the configured limit.
func (c *Client) SearchMails(ctx context.Context, query string) ([]*Message, error) {
	refs, err := c.SearchMailIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(refs) > c.searchLimit {
		return nil, fmt.Errorf("%w: %d messages match %q, limit is %d",
			ErrTooManyMessages, len(refs), query, c.searchLimit)
	}
	log.Debug().Str("module", "gmail").Str("query", query).Int("count", len(refs)).Msg("Fetching messages")

	msgs := make([]*Message, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			m, err := c.GetMailByID(gctx, ref.ID)
			if err != nil {
				return err
			}
			msgs[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddLabels adds labelIDs to a message.
func (c *Client) AddLabels(ctx context.Context, id string, labelIDs ...string) error {
	req := &gm.ModifyMessageRequest{AddLabelIds: labelIDs, RemoveLabelIds: []string{}}
	if _, err := c.srv.Users.Messages.Modify(c.user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add labels to %s: %w", id, err)
	}
	return nil
}

type getOptions struct {
	shortBase64 bool
}

// GetOption tunes GetMailByID.
type GetOption func(*getOptions)

// WithShortBase64 truncates long attachment content so the message prints
// compactly.
func WithShortBase64() GetOption {
	return func(o *getOptions) { o.shortBase64 = true }
}

// GetMailByID fetches, classifies and assembles one message.
func (c *Client) GetMailByID(ctx context.Context, id string, opts ...GetOption) (*Message, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	raw, err := c.GetRawMailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := AssembleMessage(ctx, raw, c)
	if err != nil {
		return nil, err
	}
	if o.shortBase64 {
		for i := range m.Attachments {
			m.Attachments[i].Base64 = shortenBase64(m.Attachments[i].Base64)
		}
	}
	return m, nil
}

func shortenBase64(s string) string {
	if len(s) <= shortBase64Limit {
		return s
	}
	return s[:min(len(s), shortBase64Limit+2)] + "..."
}

// GetRawMailByID fetches one message in full format without interpreting it.
func (c *Client) GetRawMailByID(ctx context.Context, id string) (*RawMessage, error) {
	msg, err := c.srv.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	if msg.Id == "" || msg.Payload == nil {
		return nil, fmt.Errorf("%w: message %s has no id or payload", ErrUnexpectedShape, id)
	}
	return rawFromAPI(msg), nil
}

// GetAttachment downloads attachment content as the provider's base64 string.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	body, err := c.srv.Users.Messages.Attachments.Get(c.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get attachment %s: %w", attachmentID, err)
	}
	return body.Data, nil
}

// DeleteMails permanently deletes messages one at a time, stopping at the
// first failure.
func (c *Client) DeleteMails(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := c.srv.Users.Messages.Delete(c.user, id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete message %s: %w", id, err)
		}
		log.Debug().Str("module", "gmail").Str("id", id).Msg("Deleted message")
	}
	return nil
}

// DeleteMailsBatch permanently deletes messages in a single request.
func (c *Client) DeleteMailsBatch(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	req := &gm.BatchDeleteMessagesRequest{Ids: ids}
	if err := c.srv.Users.Messages.BatchDelete(c.user, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch delete %d messages: %w", len(ids), err)
	}
	return nil
}

// IsNotFound reports whether err came from a 404 API response.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
