package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/glebk/pizza-bot/internal/commerce"
	"github.com/glebk/pizza-bot/internal/config"
	"github.com/glebk/pizza-bot/internal/loader"
	"github.com/glebk/pizza-bot/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "pizza-loader",
	Short: "Seeds the commerce backend with the menu and pizzerias",
	Long: `pizza-loader uploads products, prices and images from a menu file,
creates pizzeria entries from an addresses file and manages flows and their fields.
Files may be JSON or YAML.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Log every backend write")
}

// newLoader authenticates against the backend and returns a ready Loader
func newLoader(ctx context.Context, cmd *cobra.Command) (*loader.Loader, error) {
	cfg, err := config.LoadMoltin()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	tokens := commerce.NewTokenStore(commerce.AccessToken{})
	client := commerce.New(cfg.BaseURL, tokens, commerce.WithPriceBook(cfg.PriceBookID), commerce.WithChannel(cfg.Channel))
	tok, err := client.MintToken(ctx, cfg.ClientID, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	tokens.Set(tok)

	return loader.New(client, logger), nil
}
