package connector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/mailchat/internal/logging"
)

// DefaultFetchConcurrency bounds parallel per-message detail fetches.
const DefaultFetchConcurrency = 8

// FetchFunc loads and maps one provider record.
type FetchFunc func(ctx context.Context, id string) (*Envelope, error)

// FetchAll runs fetch for every id with bounded parallelism and returns the
// envelopes in id order. A failure for one id drops that record and is
// counted, it never aborts the batch. Only a cancelled context stops early.
func FetchAll(ctx context.Context, p Provider, ids []string, limit int, fetch FetchFunc) ([]Envelope, int, error) {
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}

	results := make([]*Envelope, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			env, err := fetch(gctx, id)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			if err == nil && env != nil {
				err = Validate(env)
			}
			if err != nil {
				slog.Warn("dropping provider record",
					logging.Provider(string(p)),
					slog.String("record_id", id),
					logging.Err(err))
				return nil
			}
			results[i] = env
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	envelopes := make([]Envelope, 0, len(ids))
	dropped := 0
	for _, env := range results {
		if env == nil {
			dropped++
			continue
		}
		envelopes = append(envelopes, *env)
	}
	return envelopes, dropped, nil
}

// MapAll maps records that were already fetched in one round trip. Records
// that fail to map or validate are dropped and counted.
func MapAll[T any](p Provider, records []T, mapFn func(T) (*Envelope, error)) ([]Envelope, int) {
	envelopes := make([]Envelope, 0, len(records))
	dropped := 0
	for _, rec := range records {
		env, err := mapFn(rec)
		if err == nil {
			err = Validate(env)
		}
		if err != nil {
			slog.Warn("dropping provider record", logging.Provider(string(p)), logging.Err(err))
			dropped++
			continue
		}
		envelopes = append(envelopes, *env)
	}
	return envelopes, dropped
}
