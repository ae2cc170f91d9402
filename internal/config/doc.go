// Package config loads mailchat settings from a config file, the
// environment and command-line flags through viper.
//
// Keys are dotted (store.dsn, model.api_key). Every key can be set from the
// environment with the MAILCHAT_ prefix and dots replaced by underscores
// (MAILCHAT_STORE_DSN). The unprefixed variables DATABASE_URL, REDIS_URL,
// OPENAI_API_KEY, OPENAI_MODEL, WHISPERIT_API_URL and WHISPERIT_API_KEY are
// honoured as well.
package config
