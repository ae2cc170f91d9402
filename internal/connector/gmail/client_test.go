package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/google"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func header(name, value string) *gmailapi.MessagePartHeader {
	return &gmailapi.MessagePartHeader{Name: name, Value: value}
}

func TestHeaderValue(t *testing.T) {
	msg := &gmailapi.Message{Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
		header("message-id", "<abc@x>"),
		header("Subject", "Hello"),
	}}}

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"exact case", "Subject", "Hello"},
		{"different case", "Message-ID", "<abc@x>"},
		{"missing", "References", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeaderValue(msg, tt.header))
		})
	}

	assert.Equal(t, "", HeaderValue(&gmailapi.Message{}, "Subject"))
	assert.Equal(t, "", HeaderValue(nil, "Subject"))
}

func TestMapMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("multipart message", func(t *testing.T) {
		msg := &gmailapi.Message{
			Id: "m1",
			Payload: &gmailapi.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmailapi.MessagePartHeader{
					header("From", `"Lucy Park" <lucy@example.com>`),
					header("To", "me@example.com, team@example.com"),
					header("Subject", "Re: Budget"),
					header("Date", "Tue, 03 Mar 2026 09:30:00 +0000"),
					header("Message-Id", "<m1@example.com>"),
					header("In-Reply-To", "<m0@example.com>"),
					header("References", "<root@example.com> <m0@example.com>"),
				},
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("Please approve.")}},
					{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>Please approve.</p>")}},
				},
			},
		}

		env, err := MapMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, "m1", env.ID)
		assert.Equal(t, "lucy@example.com", env.From)
		assert.Equal(t, []string{"me@example.com", "team@example.com"}, env.To)
		assert.Equal(t, "Re: Budget", env.Subject)
		assert.Equal(t, "Please approve.", env.Text)
		assert.Equal(t, "<p>Please approve.</p>", env.HTML)
		assert.Equal(t, "<m1@example.com>", env.MessageID)
		assert.Equal(t, "<m0@example.com>", env.InReplyTo)
		assert.Equal(t, []string{"<root@example.com>", "<m0@example.com>"}, env.References)
		assert.Equal(t, time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), env.SentAt.UTC())
	})

	t.Run("missing optional headers", func(t *testing.T) {
		msg := &gmailapi.Message{
			Id: "m2",
			Payload: &gmailapi.MessagePart{
				MimeType: "text/plain",
				Headers:  []*gmailapi.MessagePartHeader{header("To", "me@example.com")},
				Body:     &gmailapi.MessagePartBody{Data: b64("hi")},
			},
		}

		env, err := MapMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, "", env.From)
		assert.Equal(t, "", env.Subject)
		assert.Equal(t, "", env.InReplyTo)
		assert.Nil(t, env.References)
		assert.Equal(t, now, env.SentAt)
		assert.Equal(t, "hi", env.Text)
	})

	t.Run("internal date used when Date header is absent", func(t *testing.T) {
		msg := &gmailapi.Message{
			Id:           "m3",
			InternalDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			Snippet:      "snippet text",
			Payload: &gmailapi.MessagePart{
				Headers: []*gmailapi.MessagePartHeader{header("To", "me@example.com")},
			},
		}

		env, err := MapMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, 2026, env.SentAt.Year())
		assert.Equal(t, time.February, env.SentAt.Month())
		assert.Equal(t, "snippet text", env.Text)
	})

	t.Run("undecodable body", func(t *testing.T) {
		msg := &gmailapi.Message{
			Id: "m4",
			Payload: &gmailapi.MessagePart{
				MimeType: "text/plain",
				Headers:  []*gmailapi.MessagePartHeader{header("To", "me@example.com")},
				Body:     &gmailapi.MessagePartBody{Data: "!!not base64!!"},
			},
		}

		_, err := MapMessage(msg, now)
		assert.Error(t, err)
	})
}

func TestBuildRawMessage(t *testing.T) {
	raw := BuildRawMessage(connector.SendPayload{
		From:       "me@example.com",
		To:         []string{"lucy@example.com"},
		Subject:    "Grüße",
		Text:       "Hey, thanks",
		MessageID:  "<abc@mailchat.local>",
		InReplyTo:  "<m0@example.com>",
		References: []string{"<root@example.com>", "<m0@example.com>"},
	})

	assert.Contains(t, raw, "From: me@example.com\r\n")
	assert.Contains(t, raw, "To: lucy@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?UTF-8?b?")
	assert.Contains(t, raw, "Message-ID: <abc@mailchat.local>\r\n")
	assert.Contains(t, raw, "In-Reply-To: <m0@example.com>\r\n")
	assert.Contains(t, raw, "References: <root@example.com> <m0@example.com>\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nHey, thanks"))
}

func TestEncodeRFC2047(t *testing.T) {
	assert.Equal(t, "plain ascii", encodeRFC2047("plain ascii"))
	assert.NotEqual(t, "Grüße", encodeRFC2047("Grüße"))
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(google.Credentials{}, WithHTTPClient(srv.Client()), WithEndpoint(srv.URL+"/"))
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestSync(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages"):
			assert.Equal(t, "cursor-1", r.URL.Query().Get("pageToken"))
			assert.Equal(t, "2", r.URL.Query().Get("maxResults"))
			_ = json.NewEncoder(w).Encode(gmailapi.ListMessagesResponse{
				Messages:      []*gmailapi.Message{{Id: "a"}, {Id: "broken"}},
				NextPageToken: "cursor-2",
			})
		case strings.HasSuffix(r.URL.Path, "/messages/a"):
			_ = json.NewEncoder(w).Encode(gmailapi.Message{
				Id: "a",
				Payload: &gmailapi.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmailapi.MessagePartHeader{
						header("From", "lucy@example.com"),
						header("To", "me@example.com"),
						header("Subject", "Hi"),
					},
					Body: &gmailapi.MessagePartBody{Data: b64("hello")},
				},
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	res, err := c.Sync(context.Background(), connector.SyncOptions{Cursor: "cursor-1", MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, "cursor-2", res.NextCursor)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Envelopes, 1)
	assert.Equal(t, "hello", res.Envelopes[0].Text)
}

func TestSync_ListFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind error
	}{
		{"unauthorized", http.StatusUnauthorized, connector.ErrProviderAuthExpired},
		{"server error", http.StatusServiceUnavailable, connector.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.Sync(context.Background(), connector.SyncOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestSend(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages/send"))
		var msg gmailapi.Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))

		raw, err := base64.URLEncoding.DecodeString(msg.Raw)
		assert.NoError(t, err)
		assert.Contains(t, string(raw), "To: lucy@example.com")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gmailapi.Message{Id: "sent-1"})
	})

	res, err := c.Send(context.Background(), connector.SendPayload{
		To:      []string{"lucy@example.com"},
		Subject: "Hi",
		Text:    "body",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", res.RemoteMessageID)
}

func TestSend_NoRecipients(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	_, err := c.Send(context.Background(), connector.SendPayload{Subject: "Hi", Text: "body"})
	assert.True(t, domain.IsValidationError(err))
}

func TestNotConnected(t *testing.T) {
	c := New(google.Credentials{})

	_, err := c.Sync(context.Background(), connector.SyncOptions{})
	assert.ErrorIs(t, err, connector.ErrProviderUnavailable)

	assert.Equal(t, connector.ProviderGoogle, c.Provider())
	assert.NoError(t, c.Disconnect(context.Background()))
}
