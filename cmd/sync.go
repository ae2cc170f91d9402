package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/mailchat/internal/config"
	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/queue"
)

func newSyncCmd() *cobra.Command {
	var (
		cursor     string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull one page of messages from the mail provider",
		Long: `Fetch one page of messages from the configured provider and ingest them.

With a Redis URL the messages are queued for the worker; otherwise they are
ingested directly. The report, including the cursor of the next page, is
printed as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg
			if c.Provider.Type == "" {
				return errors.New("no provider configured (set provider.type or --provider)")
			}
			if c.Store.Driver == config.StoreMemory {
				logger.Warn("syncing into the in-memory store; messages are lost when the command exits")
			}
			if maxResults <= 0 {
				maxResults = c.Provider.PageSize
			}

			ctx := cmd.Context()

			st, _, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer st.Close()

			conn, err := newConnector(ctx, c, nil)
			if err != nil {
				return err
			}
			defer conn.Disconnect(ctx)

			opts := []inbox.Option{inbox.WithOwner(c.Owner), inbox.WithLogger(logger)}
			if c.Redis.URL != "" {
				q, _, err := openQueue(ctx, c)
				if err != nil {
					return err
				}
				defer q.Close()
				opts = append(opts, inbox.WithEnqueuer(queue.Enqueuer{Queue: q}))
			}
			svc := inbox.NewService(st, newPipeline(c, nil), opts...)

			report, err := svc.SyncProvider(ctx, conn, connector.SyncOptions{Cursor: cursor, MaxResults: maxResults})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cursor, "cursor", "", "Cursor returned by the previous sync")
	f.IntVar(&maxResults, "max-results", 0, "Page size (default: provider.page_size)")
	f.String("provider", "", "Provider type: GOOGLE, MICROSOFT or IMAP_SMTP")
	f.String("store-dsn", "", "Database DSN (sqlite file or postgres:// URL)")
	f.String("redis-url", "", "Queue messages in Redis instead of ingesting them")
	bindKey(f, "provider", "provider.type")
	bindKey(f, "store-dsn", "store.dsn")
	bindKey(f, "redis-url", "redis.url")

	return cmd
}
