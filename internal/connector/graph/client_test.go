package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailchat/internal/connector"
)

func TestMapMessage(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		msg   Message
		check func(t *testing.T, env *connector.Envelope)
	}{
		{
			name: "full message",
			msg: Message{
				ID:                "AAMk1",
				Subject:           "Quarterly review",
				From:              &recipient{EmailAddress: emailAddress{Name: "Ops", Address: "ops@example.com"}},
				ToRecipients:      []recipient{{EmailAddress: emailAddress{Address: "me@example.com"}}},
				BodyPreview:       "Please review",
				Body:              &itemBody{ContentType: "html", Content: "<p>Please review</p>"},
				SentDateTime:      "2026-03-30T10:00:00Z",
				ConversationID:    "conv-1",
				InternetMessageID: "<x@example.com>",
			},
			check: func(t *testing.T, env *connector.Envelope) {
				assert.Equal(t, "AAMk1", env.ID)
				assert.Equal(t, "ops@example.com", env.From)
				assert.Equal(t, []string{"me@example.com"}, env.To)
				assert.Equal(t, "Please review", env.Text)
				assert.Equal(t, "<p>Please review</p>", env.HTML)
				assert.Equal(t, "conv-1", env.InReplyTo)
				assert.Equal(t, []string{"conv-1"}, env.References)
				assert.Equal(t, "<x@example.com>", env.MessageID)
				assert.Equal(t, time.Date(2026, 3, 30, 10, 0, 0, 0, time.UTC), env.SentAt.UTC())
			},
		},
		{
			name: "missing optional fields",
			msg: Message{
				ID:           "AAMk2",
				ToRecipients: []recipient{{EmailAddress: emailAddress{Address: "me@example.com"}}},
				Body:         &itemBody{ContentType: "text", Content: "plain body"},
			},
			check: func(t *testing.T, env *connector.Envelope) {
				assert.Equal(t, "", env.From)
				assert.Equal(t, "", env.Subject)
				assert.Equal(t, "plain body", env.Text)
				assert.Equal(t, "", env.InReplyTo)
				assert.Nil(t, env.References)
				assert.Equal(t, now, env.SentAt)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := MapMessage(tt.msg, now)
			require.NoError(t, err)
			tt.check(t, env)
		})
	}
}

func connected(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Credentials{}, WithHTTPClient(srv.Client()), WithBaseURL(srv.URL))
	require.NoError(t, c.Connect(context.Background()))
	return c, srv
}

func TestSync(t *testing.T) {
	var srvURL string
	c, srv := connected(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(messagePage{})
			return
		}
		assert.Equal(t, "5", r.URL.Query().Get("$top"))
		_ = json.NewEncoder(w).Encode(messagePage{
			Value: []Message{
				{ID: "1", ToRecipients: []recipient{{EmailAddress: emailAddress{Address: "me@example.com"}}}},
				{ID: "2"},
			},
			NextLink: srvURL + "/me/messages?page=2",
		})
	})
	srvURL = srv.URL

	res, err := c.Sync(context.Background(), connector.SyncOptions{MaxResults: 5})
	require.NoError(t, err)
	assert.Len(t, res.Envelopes, 1)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, srv.URL+"/me/messages?page=2", res.NextCursor)

	res, err = c.Sync(context.Background(), connector.SyncOptions{Cursor: res.NextCursor})
	require.NoError(t, err)
	assert.Empty(t, res.Envelopes)
	assert.Equal(t, "", res.NextCursor)
}

func TestSync_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind error
	}{
		{"unauthorized", http.StatusUnauthorized, connector.ErrProviderAuthExpired},
		{"forbidden", http.StatusForbidden, connector.ErrProviderAuthExpired},
		{"throttled", http.StatusTooManyRequests, connector.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := connected(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"code":"x"}}`, tt.status)
			})

			_, err := c.Sync(context.Background(), connector.SyncOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)

			var sErr *connector.StatusError
			require.True(t, errors.As(err, &sErr))
			assert.Equal(t, tt.status, sErr.StatusCode)
		})
	}
}

func TestSend(t *testing.T) {
	var calls []string
	c, _ := connected(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/me/messages":
			var draft draftRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			assert.Equal(t, "Hi", draft.Subject)
			assert.Equal(t, "Text", draft.Body.ContentType)
			assert.Equal(t, "lucy@example.com", draft.ToRecipients[0].EmailAddress.Address)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(draftResponse{ID: "draft-1"})
		case "/me/messages/draft-1/send":
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := c.Send(context.Background(), connector.SendPayload{
		To:      []string{"lucy@example.com"},
		Subject: "Hi",
		Text:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", res.RemoteMessageID)
	assert.Equal(t, []string{"POST /me/messages", "POST /me/messages/draft-1/send"}, calls)
}

func TestConnect_RequiresToken(t *testing.T) {
	c := New(Credentials{})
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrProviderAuthExpired)

	c = New(Credentials{AccessToken: "at"})
	assert.NoError(t, c.Connect(context.Background()))
	assert.NoError(t, c.Disconnect(context.Background()))

	_, err = c.Sync(context.Background(), connector.SyncOptions{})
	assert.ErrorIs(t, err, connector.ErrProviderUnavailable)
}
