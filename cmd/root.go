package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/mailchat/internal/config"
	"github.com/teemow/mailchat/internal/logging"
)

var (
	// v holds the layered configuration; cfg is decoded from it before any
	// command runs.
	v   = config.New()
	cfg *config.Config

	configFile string
	logger     = slog.Default()
)

// rootCmd represents the base command for the mailchat application
var rootCmd = &cobra.Command{
	Use:   "mailchat",
	Short: "Chat-style email inbox with summaries, classification and tone rewriting",
	Long: `mailchat turns email threads into a chat-style inbox. Every message is
cleaned, summarized and classified; replies can be rewritten to a tone
before they are sent through the configured mail provider.

It can run as:
  - An HTTP API server (serve)
  - An MCP (Model Context Protocol) server for AI assistants (serve --mcp-transport)
  - One-shot tools (sync, classify) and a queue worker (worker)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailchat version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: mailchat.yaml in ., $HOME/.config/mailchat or /etc/mailchat)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	bindKey(rootCmd.PersistentFlags(), "debug", "debug")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newWorkerCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads the config file, decodes the configuration and sets up
// logging. Logs go to stderr so stdout stays clean for stdio transports and
// command output.
func loadConfig(cmd *cobra.Command) error {
	// Only the flags of the running command are bound, so commands sharing
	// a key do not shadow each other.
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[configKeyAnnotation]; ok && bindErr == nil {
			bindErr = v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("failed to bind flags: %w", bindErr)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := config.ReadFile(v); err != nil {
		return err
	}

	loaded, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger = logging.New(cmd.ErrOrStderr(), cfg.Debug)
	slog.SetDefault(logger)
	return nil
}

const configKeyAnnotation = "mailchat_config_key"

// bindKey marks flag name as the command-line source of config key.
func bindKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("failed to annotate flag %s: %v", name, err))
	}
}
