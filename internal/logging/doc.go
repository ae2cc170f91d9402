// Package logging holds the slog conventions shared by every mailchat
// package: attribute keys, attribute constructors, the root logger and a
// small Logger interface for long-running components.
//
// Mail addresses are logged as a domain (Domain) or a stable hash
// (UserHash), never verbatim. Attributes named like credentials are
// replaced by New's handler before they are written.
//
//	logger := logging.WithProvider(slog.Default(), "GOOGLE")
//	logger.Info("message ingested",
//	    logging.Thread(threadID),
//	    logging.Domain(sender))
package logging
