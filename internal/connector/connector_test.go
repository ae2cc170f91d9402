package connector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teemow/mailchat/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{name: "google 401", err: &googleapi.Error{Code: 401}, wantKind: ErrProviderAuthExpired},
		{name: "google 403", err: &googleapi.Error{Code: 403}, wantKind: ErrProviderAuthExpired},
		{name: "google 500", err: &googleapi.Error{Code: 500}, wantKind: ErrProviderUnavailable},
		{name: "token refresh", err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, wantKind: ErrProviderAuthExpired},
		{name: "rest 401", err: fmt.Errorf("list: %w", &StatusError{StatusCode: 401}), wantKind: ErrProviderAuthExpired},
		{name: "rest 503", err: &StatusError{StatusCode: 503}, wantKind: ErrProviderUnavailable},
		{name: "network", err: errors.New("dial tcp: connection refused"), wantKind: ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(ProviderGoogle, "sync", tt.err)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
			assert.True(t, errors.Is(err, tt.err))

			var pErr *ProviderError
			require.True(t, errors.As(err, &pErr))
			assert.Equal(t, ProviderGoogle, pErr.Provider)
		})
	}

	assert.NoError(t, Classify(ProviderGoogle, "sync", nil))

	already := AuthExpired(ProviderIMAPSMTP, "login", errors.New("bad credentials"))
	assert.Same(t, already, Classify(ProviderGoogle, "sync", already))
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "bare", input: "a@x.com", want: []string{"a@x.com"}},
		{name: "named list", input: `"Ann Lee" <ann@x.com>, bob@y.com`, want: []string{"ann@x.com", "bob@y.com"}},
		{name: "fallback split", input: "<ann@x.com>, not an address, bob@y.com", want: []string{"ann@x.com", "bob@y.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddressList(tt.input))
		})
	}

	assert.Equal(t, "ann@x.com", ParseAddress(`Ann <ann@x.com>`))
	assert.Equal(t, "", ParseAddress(""))
}

func TestResolveSentAt(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := ResolveSentAt("Mon, 02 Jan 2006 15:04:05 -0700", now)
	assert.Equal(t, 2006, got.Year())

	got = ResolveSentAt("2025-06-01T08:00:00Z", now)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), got.UTC())

	assert.Equal(t, now, ResolveSentAt("", now))
	assert.Equal(t, now, ResolveSentAt("yesterday-ish", now))
}

func TestParseReferences(t *testing.T) {
	assert.Nil(t, ParseReferences(""))
	assert.Nil(t, ParseReferences("   "))
	assert.Equal(t, []string{"<a@x>", "<b@x>"}, ParseReferences("<a@x>\r\n <b@x>"))
}

func TestValidate(t *testing.T) {
	ok := &Envelope{ID: "1", To: []string{"b@x.com"}, SentAt: time.Now()}
	assert.NoError(t, Validate(ok))

	assert.ErrorIs(t, Validate(&Envelope{To: []string{"b@x.com"}, SentAt: time.Now()}), ErrMalformedRecord)
	assert.ErrorIs(t, Validate(&Envelope{ID: "1", SentAt: time.Now()}), ErrMalformedRecord)
	assert.ErrorIs(t, Validate(&Envelope{ID: "1", To: []string{"b@x.com"}}), ErrMalformedRecord)
}

func TestFetchAll_DropsFailuresAndKeepsOrder(t *testing.T) {
	ids := []string{"m1", "bad", "m3", "noto", "m5"}
	var calls atomic.Int32

	envs, dropped, err := FetchAll(context.Background(), ProviderGoogle, ids, 2, func(_ context.Context, id string) (*Envelope, error) {
		calls.Add(1)
		switch id {
		case "bad":
			return nil, errors.New("decode failure")
		case "noto":
			return &Envelope{ID: id, SentAt: time.Now()}, nil
		}
		return &Envelope{ID: id, To: []string{"me@x.com"}, SentAt: time.Now()}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 2, dropped)
	require.Len(t, envs, 3)
	assert.Equal(t, "m1", envs[0].ID)
	assert.Equal(t, "m3", envs[1].ID)
	assert.Equal(t, "m5", envs[2].ID)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := FetchAll(ctx, ProviderGoogle, []string{"a", "b"}, 1, func(context.Context, string) (*Envelope, error) {
		return &Envelope{ID: "a", To: []string{"x@y"}, SentAt: time.Now()}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_CancelledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envs, dropped, err := FetchAll(ctx, ProviderGoogle, []string{"a"}, 1, func(ctx context.Context, _ string) (*Envelope, error) {
		cancel()
		<-ctx.Done()
		return nil, fmt.Errorf("get message: %w", ctx.Err())
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, envs)
	assert.Zero(t, dropped)
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, ValidatePayload(SendPayload{To: []string{"lucy@example.com"}}))

	err := ValidatePayload(SendPayload{Subject: "Hi"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "to", vErr.Field)
}

func TestMapAll(t *testing.T) {
	records := []int{1, 2, 3}
	envs, dropped := MapAll(ProviderMicrosoft, records, func(n int) (*Envelope, error) {
		if n == 2 {
			return nil, errors.New("broken")
		}
		return &Envelope{ID: fmt.Sprint(n), To: []string{"x@y"}, SentAt: time.Now()}, nil
	})
	assert.Equal(t, 1, dropped)
	assert.Len(t, envs, 2)
}

func TestSyncOptionsPageSize(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, SyncOptions{}.PageSize())
	assert.Equal(t, 10, SyncOptions{MaxResults: 10}.PageSize())
}
