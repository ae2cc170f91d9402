package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/teemow/mailchat/internal/connector"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const selectFields = "id,subject,from,toRecipients,bodyPreview,body,sentDateTime,conversationId,internetMessageId"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1024

var errNotConnected = errors.New("graph connector is not connected")

// Client is the Microsoft Graph connector.
type Client struct {
	creds   Credentials
	baseURL string
	now     func() time.Time

	mu   sync.RWMutex
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc instead of an OAuth2 client built from the
// credentials.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL overrides the Graph API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Graph connector. Call Connect before Sync or Send.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{creds: creds, baseURL: DefaultBaseURL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider implements connector.Connector.
func (c *Client) Provider() connector.Provider {
	return connector.ProviderMicrosoft
}

// Connect prepares the authenticated HTTP client.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http != nil {
		return nil
	}
	if c.creds.AccessToken == "" && c.creds.RefreshToken == "" {
		return connector.AuthExpired(connector.ProviderMicrosoft, "connect", errors.New("no access token configured"))
	}

	tok := &oauth2.Token{AccessToken: c.creds.AccessToken, TokenType: "Bearer", RefreshToken: c.creds.RefreshToken}
	var ts oauth2.TokenSource
	if c.creds.RefreshToken != "" && c.creds.ClientID != "" {
		tenant := c.creds.Tenant
		if tenant == "" {
			tenant = "common"
		}
		conf := &oauth2.Config{
			ClientID:     c.creds.ClientID,
			ClientSecret: c.creds.ClientSecret,
			RedirectURL:  c.creds.RedirectURI,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			Scopes:       []string{"offline_access", "Mail.ReadWrite", "Mail.Send"},
		}
		tok.Expiry = time.Unix(1, 0)
		ts = conf.TokenSource(ctx, tok)
	} else {
		ts = oauth2.StaticTokenSource(tok)
	}

	c.http = oauth2.NewClient(ctx, ts)
	return nil
}

// Disconnect drops the HTTP client.
func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	c.http = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) client() (*http.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.http == nil {
		return nil, errNotConnected
	}
	return c.http, nil
}

// Sync loads one page of messages. The cursor is the @odata.nextLink of the
// previous page.
func (c *Client) Sync(ctx context.Context, opts connector.SyncOptions) (*connector.SyncResult, error) {
	hc, err := c.client()
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderMicrosoft, "sync", err)
	}

	target := opts.Cursor
	if target == "" {
		q := url.Values{}
		q.Set("$top", strconv.Itoa(opts.PageSize()))
		q.Set("$select", selectFields)
		q.Set("$orderby", "sentDateTime desc")
		target = c.baseURL + "/me/messages?" + q.Encode()
	}

	var page messagePage
	if err := c.do(ctx, hc, http.MethodGet, target, nil, &page); err != nil {
		return nil, connector.Classify(connector.ProviderMicrosoft, "list", err)
	}

	now := c.now()
	envelopes, dropped := connector.MapAll(connector.ProviderMicrosoft, page.Value, func(m Message) (*connector.Envelope, error) {
		return MapMessage(m, now)
	})

	return &connector.SyncResult{
		Envelopes:  envelopes,
		NextCursor: page.NextLink,
		Dropped:    dropped,
	}, nil
}

// Send creates a draft and sends it. The draft id is returned as the remote
// message id.
func (c *Client) Send(ctx context.Context, payload connector.SendPayload) (*connector.SendResult, error) {
	if err := connector.ValidatePayload(payload); err != nil {
		return nil, err
	}

	hc, err := c.client()
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderMicrosoft, "send", err)
	}

	draft := draftRequest{
		Subject: payload.Subject,
		Body:    itemBody{ContentType: "Text", Content: payload.Text},
	}
	if payload.HTML != "" {
		draft.Body = itemBody{ContentType: "HTML", Content: payload.HTML}
	}
	for _, addr := range payload.To {
		draft.ToRecipients = append(draft.ToRecipients, recipient{EmailAddress: emailAddress{Address: addr}})
	}

	var created draftResponse
	if err := c.do(ctx, hc, http.MethodPost, c.baseURL+"/me/messages", draft, &created); err != nil {
		return nil, connector.Classify(connector.ProviderMicrosoft, "send", fmt.Errorf("failed to create draft: %w", err))
	}
	if created.ID == "" {
		return nil, connector.Unavailable(connector.ProviderMicrosoft, "send", errors.New("draft response carried no id"))
	}

	sendURL := c.baseURL + "/me/messages/" + url.PathEscape(created.ID) + "/send"
	if err := c.do(ctx, hc, http.MethodPost, sendURL, nil, nil); err != nil {
		return nil, connector.Classify(connector.ProviderMicrosoft, "send", fmt.Errorf("failed to send draft: %w", err))
	}

	return &connector.SendResult{RemoteMessageID: created.ID}, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, target string, in, out any) error {
	req := resty.NewWithClient(hc).R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		ForceContentType("application/json")
	if in != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(in)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &connector.StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// MapMessage converts a Graph message into an envelope. The conversation id
// stands in for both threading headers.
func MapMessage(m Message, now time.Time) (*connector.Envelope, error) {
	env := &connector.Envelope{
		ID:        m.ID,
		Subject:   m.Subject,
		Text:      m.BodyPreview,
		MessageID: m.InternetMessageID,
		InReplyTo: m.ConversationID,
		SentAt:    connector.ResolveSentAt(m.SentDateTime, now),
	}
	if m.From != nil {
		env.From = m.From.EmailAddress.Address
	}
	for _, r := range m.ToRecipients {
		if r.EmailAddress.Address != "" {
			env.To = append(env.To, r.EmailAddress.Address)
		}
	}
	if m.ConversationID != "" {
		env.References = []string{m.ConversationID}
	}
	if m.Body != nil {
		if strings.EqualFold(m.Body.ContentType, "html") {
			env.HTML = m.Body.Content
		} else if m.Body.Content != "" {
			env.Text = m.Body.Content
		}
	}
	return env, nil
}
