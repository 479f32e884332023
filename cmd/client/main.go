package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "relaychat-client [username] [port] [server-address]",
		Short: "Chat on a relaychat server from the terminal",
		Long: "relaychat-client joins a relaychat server. Lines starting with '/' are " +
			"commands (/msg <user> <text>, /list, /logout); anything else is sent to everyone.",
		Args:         cobra.MaximumNArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(args)
			if err != nil {
				return err
			}

			log, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = client.New(cfg, cmd.InOrStdin(), cmd.OutOrStdout(), log).Run(ctx)
			if errors.Is(err, client.ErrDuplicateUsername) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "error", "log level: debug, info, warn or error")
	return cmd
}

// resolveConfig layers positional arguments over the environment.
func resolveConfig(args []string) (client.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return client.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := client.LoadConfigFromEnv()
	if err != nil {
		return client.Config{}, err
	}

	if len(args) > 0 {
		cfg.Username = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return client.Config{}, fmt.Errorf("invalid port %q", args[1])
		}
		cfg.Port = port
	}
	if len(args) > 2 {
		cfg.ServerAddr = args[2]
	}
	return cfg, cfg.Validate()
}
