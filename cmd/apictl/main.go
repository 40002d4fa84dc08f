// apictl is a small operator CLI for the Lumen API client: issue requests
// against a configured backend and check device connectivity.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lumenapp/lumen-api-client/pkg/api"
	"github.com/lumenapp/lumen-api-client/pkg/logging"
	"github.com/lumenapp/lumen-api-client/pkg/netmon"
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:           "apictl",
		Short:         "Issue authenticated requests against the Lumen backend",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var (
		baseURL string
		verbose bool
	)
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides LUMEN_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	newClient := func() (*api.Client, error) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Setup(logging.Config{Level: level, Pretty: true, Output: os.Stderr})

		cfg, err := api.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		client, err := api.New(cfg)
		if err != nil {
			return nil, err
		}
		if token := os.Getenv("LUMEN_ACCESS_TOKEN"); token != "" {
			client.Tokens().SetAccessToken(token)
		}
		return client, nil
	}

	newMonitor := func() *netmon.Monitor {
		logger := logging.Setup(logging.DefaultConfig())
		return netmon.NewMonitor(netmon.NewDialProber(), logger)
	}

	rootCmd.AddCommand(getCmd(newClient))
	rootCmd.AddCommand(netcheckCmd(newMonitor))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getCmd issues a GET request and prints the unwrapped data field.
func getCmd(newClient func() (*api.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get <endpoint>",
		Short: "Issue a GET request and print the response data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			var data json.RawMessage
			if err := client.Get(cmd.Context(), args[0], &data); err != nil {
				return err
			}

			return printJSON(cmd, data)
		},
	}
}

// errOffline is returned by netcheck when no connectivity was found; the
// error path in main turns it into a non-zero exit.
var errOffline = errors.New("offline")

// netcheckCmd probes connectivity the way the request layer does before a
// request.
func netcheckCmd(newMonitor func() *netmon.Monitor) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "netcheck",
		Short: "Check connectivity, optionally waiting for it to return",
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor := newMonitor()

			if monitor.IsOnline(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), "online")
				return nil
			}
			if wait > 0 && monitor.AwaitOnline(cmd.Context(), wait) {
				fmt.Fprintln(cmd.OutOrStdout(), "online")
				return nil
			}

			return errOffline
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "how long to wait for connectivity before giving up")
	return cmd
}

func printJSON(cmd *cobra.Command, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err == nil {
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
