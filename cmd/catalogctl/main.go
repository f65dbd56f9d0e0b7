package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cardistry-catalog/pkg/client"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Command line client for the cardistry move catalog",
	Long: `catalogctl talks to the catalog API.

Sign in once and export the printed token:
  export CATALOG_TOKEN=$(catalogctl auth sign-in --email ada@example.com --password '...')

Then browse and submit moves:
  catalogctl moves list -q sybil
  catalogctl moves add --name Sybil --creator "Chris Kenner" --image sybil.png`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnv("CATALOG_SERVER", "http://localhost:8080"), "Catalog API base URL (or set CATALOG_SERVER env)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CATALOG_TOKEN"), "Session token (or set CATALOG_TOKEN env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(movesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, token)
}

// commandContext bounds a command by --timeout. Commands invoked directly
// (tests) have no context of their own.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
