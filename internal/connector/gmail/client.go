package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/google"
)

const userID = "me"

var errNotConnected = errors.New("gmail connector is not connected")

// Client is the Gmail connector.
type Client struct {
	creds      google.Credentials
	httpClient *http.Client
	endpoint   string
	now        func() time.Time

	mu  sync.RWMutex
	svc *gmailapi.UsersService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc instead of an OAuth2 client built from the
// credentials.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Gmail connector. Call Connect before Sync or Send.
func New(creds google.Credentials, opts ...Option) *Client {
	c := &Client{creds: creds, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider implements connector.Connector.
func (c *Client) Provider() connector.Provider {
	return connector.ProviderGoogle
}

// Connect builds the Gmail service from the configured credentials.
func (c *Client) Connect(ctx context.Context) error {
	hc := c.httpClient
	if hc == nil {
		var err error
		hc, err = google.NewHTTPClient(ctx, c.creds)
		if err != nil {
			return connector.AuthExpired(connector.ProviderGoogle, "connect", err)
		}
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return connector.Unavailable(connector.ProviderGoogle, "connect", err)
	}

	c.mu.Lock()
	c.svc = svc.Users
	c.mu.Unlock()
	return nil
}

// Disconnect drops the service handle. Nothing is revoked remotely.
func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	c.svc = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) service() (*gmailapi.UsersService, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.svc == nil {
		return nil, errNotConnected
	}
	return c.svc, nil
}

// Sync lists one page of messages and loads each of them in full.
func (c *Client) Sync(ctx context.Context, opts connector.SyncOptions) (*connector.SyncResult, error) {
	svc, err := c.service()
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderGoogle, "sync", err)
	}

	req := svc.Messages.List(userID).MaxResults(int64(opts.PageSize())).Context(ctx)
	if opts.Cursor != "" {
		req = req.PageToken(opts.Cursor)
	}
	list, err := req.Do()
	if err != nil {
		return nil, connector.Classify(connector.ProviderGoogle, "list", err)
	}

	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.Id)
	}

	envelopes, dropped, err := connector.FetchAll(ctx, connector.ProviderGoogle, ids, connector.DefaultFetchConcurrency,
		func(ctx context.Context, id string) (*connector.Envelope, error) {
			msg, err := svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("failed to get message %s: %w", id, err)
			}
			return MapMessage(msg, c.now())
		})
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderGoogle, "sync", err)
	}

	return &connector.SyncResult{
		Envelopes:  envelopes,
		NextCursor: list.NextPageToken,
		Dropped:    dropped,
	}, nil
}

// Send submits payload through the Gmail API and returns the Gmail message id.
func (c *Client) Send(ctx context.Context, payload connector.SendPayload) (*connector.SendResult, error) {
	if err := connector.ValidatePayload(payload); err != nil {
		return nil, err
	}

	svc, err := c.service()
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderGoogle, "send", err)
	}

	raw := base64.URLEncoding.EncodeToString([]byte(BuildRawMessage(payload)))
	sent, err := svc.Messages.Send(userID, &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, connector.Classify(connector.ProviderGoogle, "send", fmt.Errorf("failed to send email: %w", err))
	}

	return &connector.SendResult{RemoteMessageID: sent.Id}, nil
}
