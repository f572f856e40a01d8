package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solana-token-factory/factory/pkg/factory/creator"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
	"github.com/solana-token-factory/factory/pkg/factory/recent"
	"github.com/solana-token-factory/factory/pkg/factory/storageapi"
	"github.com/solana-token-factory/factory/pkg/solana"
)

type globalFlags struct {
	network    string
	storageURL string
	recentFile string
	verbose    bool
}

// services are the dependencies shared by every subcommand
type services struct {
	creator *creator.Service
	recent  *recent.List
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "create-token",
		Short:         "Create SPL tokens with metadata on Solana",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.network, "network", "mainnet", "Solana cluster name (mainnet|devnet|testnet) or RPC URL")
	rootCmd.PersistentFlags().StringVar(&flags.storageURL, "storage-url", os.Getenv("STORAGE_API_URL"), "Storage API base URL, used for promo codes and token records")
	rootCmd.PersistentFlags().StringVar(&flags.recentFile, "recent-file", "", "File the recently created tokens list is persisted to")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Verbose logging")

	rootCmd.AddCommand(
		newQuoteCmd(flags),
		newCreateCmd(flags),
		newRecentCmd(flags),
		newPromosCmd(flags),
	)
	return rootCmd
}

func newServices(flags *globalFlags) (*services, error) {
	environment, err := solana.EnvironmentFromName(flags.network)
	if err != nil {
		return nil, err
	}

	recentTokens, err := loadRecent(flags.recentFile)
	if err != nil {
		return nil, err
	}

	var storage *storageapi.Client
	var promos *promo.Service
	var recorder creator.TokenRecorder
	if len(flags.storageURL) > 0 {
		storage = storageapi.NewClient(storageapi.WithBaseUrl(flags.storageURL))
		promos = promo.NewService(storage, promo.NewCache())
		recorder = storage
	}

	svc, err := creator.New(
		solana.New(string(environment)),
		promos,
		recorder,
		recentTokens,
		creator.WithEnvConfigs(),
	)
	if err != nil {
		return nil, err
	}

	return &services{
		creator: svc,
		recent:  recentTokens,
	}, nil
}

func loadRecent(path string) (*recent.List, error) {
	list := recent.NewList(recent.DefaultCapacity)
	if len(path) == 0 {
		return list, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return list, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "error opening recent tokens file")
	}
	defer f.Close()

	if err := list.Load(f); err != nil {
		return nil, err
	}
	return list, nil
}

func saveRecent(path string, list *recent.List) error {
	if len(path) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating recent tokens file")
	}
	if err := list.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newRecentCmd(flags *globalFlags) *cobra.Command {
	var remote bool
	var limit uint64

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently created tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !remote {
				list, err := loadRecent(flags.recentFile)
				if err != nil {
					return err
				}
				printRecent(out, list.Entries(), time.Now())
				return nil
			}

			if len(flags.storageURL) == 0 {
				return errors.New("--storage-url is required with --remote")
			}
			client := storageapi.NewClient(storageapi.WithBaseUrl(flags.storageURL))

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			records, err := client.GetRecentTokens(ctx, limit)
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintf(out, "%s (%s)  %s\n", record.Name, record.Symbol, record.MintAddress)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Read the list from the storage API instead of the local file")
	cmd.Flags().Uint64Var(&limit, "limit", 10, "Maximum number of tokens returned by the storage API")
	return cmd
}

func newPromosCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "promos",
		Short: "List usable promo codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(flags.storageURL) == 0 {
				return errors.New("--storage-url is required")
			}
			client := storageapi.NewClient(storageapi.WithBaseUrl(flags.storageURL))

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			records, err := client.GetAllUsable(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, record := range records {
				fmt.Fprintf(out, "%-16s %3d%%  uses %d", record.Code, record.DiscountPercentage, record.UsesCount)
				if record.MaxUses != nil {
					fmt.Fprintf(out, "/%d", *record.MaxUses)
				}
				if record.ExpiresAt != nil {
					fmt.Fprintf(out, "  expires %s", record.ExpiresAt.UTC().Format(time.RFC3339))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func printRecent(out io.Writer, entries []recent.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "no recent tokens")
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(out, "%s (%s)  %s  %s\n", entry.Name, entry.Symbol, entry.MintAddress, entry.TimeAgo(now))
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("create-token failed")
		os.Exit(1)
	}
}
