package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/filter"
	"github.com/Tyrowin/relaychat/internal/logging"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	host     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "relaychat-server [port] [badwords-file]",
		Short: "Run the relaychat server",
		Long: "relaychat-server accepts WebSocket clients on /ws, relays their chat " +
			"with banned words masked and serves /stats and a health check on /.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", server.DefaultHost, "interface to listen on (empty for all)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.AddCommand(newWhoCmd())
	return cmd
}

func newWhoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "who [port] [server-address]",
		Short: "List the users connected to a running server",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := whoConfig(args)
			if err != nil {
				return err
			}

			members, err := client.FetchMembers(cmd.Context(), nil, cfg)
			if err != nil {
				return err
			}
			client.RenderMembers(cmd.OutOrStdout(), members)
			return nil
		},
	}
}

func whoConfig(args []string) (client.Config, error) {
	if err := loadDotEnv(); err != nil {
		return client.Config{}, err
	}
	cfg, err := client.LoadConfigFromEnv()
	if err != nil {
		return client.Config{}, err
	}

	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return client.Config{}, fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Port = port
	}
	if len(args) > 1 {
		cfg.ServerAddr = args[1]
	}
	return cfg, cfg.Validate()
}

// loadDotEnv reads ./.env into the environment when the file exists. Variables
// already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// resolveConfig layers positional arguments and flags over the environment.
func resolveConfig(cmd *cobra.Command, args []string, opts options) (server.Config, error) {
	if err := loadDotEnv(); err != nil {
		return server.Config{}, err
	}
	cfg, err := server.LoadConfigFromEnv()
	if err != nil {
		return server.Config{}, err
	}

	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 || port > 65535 {
			return server.Config{}, fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Port = port
	}
	if len(args) > 1 {
		cfg.BannedWordsPath = args[1]
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = opts.host
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg.Sanitize(), nil
}

func run(ctx context.Context, cfg server.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	words, err := filter.Load(cfg.BannedWordsPath)
	if err != nil {
		log.Error("Refusing to start without a banned-word list",
			zap.String("path", cfg.BannedWordsPath),
			zap.Error(err))
		return err
	}
	log.Info("Banned words loaded",
		zap.String("path", cfg.BannedWordsPath),
		zap.Strings("words", words.Words()))

	return server.New(cfg, words, log).Run(ctx)
}
