package imapsmtp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/mailchat/internal/connector"
)

const mailbox = "INBOX"

var errNotConnected = errors.New("imap connector is not connected")

// Client is the IMAP/SMTP connector.
type Client struct {
	creds Credentials
	now   func() time.Time

	mu   sync.Mutex
	imap *imapclient.Client
}

// New creates an IMAP/SMTP connector. Call Connect before Sync.
func New(creds Credentials) *Client {
	return &Client{creds: creds, now: time.Now}
}

// Provider implements connector.Connector.
func (c *Client) Provider() connector.Provider {
	return connector.ProviderIMAPSMTP
}

// Connect dials the IMAP server and logs in. A rejected login is reported
// as an expired authorization.
func (c *Client) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.imap != nil {
		return nil
	}

	var (
		client *imapclient.Client
		err    error
	)
	if c.creds.Secure {
		client, err = imapclient.DialTLS(c.creds.imapAddr(), nil)
	} else {
		client, err = imapclient.DialStartTLS(c.creds.imapAddr(), nil)
	}
	if err != nil {
		return connector.Unavailable(connector.ProviderIMAPSMTP, "connect", fmt.Errorf("connecting to IMAP %s: %w", c.creds.imapAddr(), err))
	}

	if err := client.Login(c.creds.User, c.creds.Pass).Wait(); err != nil {
		_ = client.Close()
		return connector.AuthExpired(connector.ProviderIMAPSMTP, "login", err)
	}

	c.imap = client
	return nil
}

// Disconnect logs out and closes the IMAP connection.
func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.imap == nil {
		return nil
	}
	err := c.imap.Logout().Wait()
	_ = c.imap.Close()
	c.imap = nil
	return err
}

// Sync fetches the newest messages of INBOX. Without a cursor it takes the
// last MaxResults messages by sequence number; with a cursor it takes the
// messages whose UID is at least the cursor. The next cursor is UIDNext.
func (c *Client) Sync(ctx context.Context, opts connector.SyncOptions) (*connector.SyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.imap == nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "sync", errNotConnected)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected, err := c.imap.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "select", err)
	}

	result := &connector.SyncResult{NextCursor: strconv.FormatUint(uint64(selected.UIDNext), 10)}

	limit := opts.PageSize()
	var numSet imap.NumSet
	minUID := imap.UID(0)
	if opts.Cursor != "" {
		cursor, err := ParseCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor >= selected.UIDNext {
			return result, nil
		}
		minUID = cursor
		numSet = imap.UIDSet{imap.UIDRange{Start: cursor, Stop: 0}}
	} else {
		if selected.NumMessages == 0 {
			return result, nil
		}
		start, stop := SequenceRange(selected.NumMessages, limit)
		var seq imap.SeqSet
		seq.AddRange(start, stop)
		numSet = seq
	}

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := c.imap.Fetch(numSet, &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	type fetched struct {
		env *imap.Envelope
		uid imap.UID
		raw []byte
	}
	var records []fetched
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			result.Dropped++
			continue
		}
		if buf.UID < minUID {
			// "N:*" always matches the highest UID, even below N.
			continue
		}
		records = append(records, fetched{env: buf.Envelope, uid: buf.UID, raw: buf.FindBodySection(section)})
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "fetch", err)
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	now := c.now()
	envelopes, dropped := connector.MapAll(connector.ProviderIMAPSMTP, records, func(r fetched) (*connector.Envelope, error) {
		return MapMessage(r.env, r.uid, r.raw, now)
	})
	result.Envelopes = envelopes
	result.Dropped += dropped
	return result, nil
}

// SequenceRange returns the sequence range covering the last limit of
// exists messages.
func SequenceRange(exists uint32, limit int) (uint32, uint32) {
	start := uint32(1)
	if limit > 0 && exists > uint32(limit) {
		start = exists - uint32(limit) + 1
	}
	return start, exists
}

// ParseCursor parses a UID cursor.
func ParseCursor(cursor string) (imap.UID, error) {
	n, err := strconv.ParseUint(cursor, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid IMAP cursor %q", cursor)
	}
	return imap.UID(n), nil
}
