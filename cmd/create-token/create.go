package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/factory/creation"
	"github.com/solana-token-factory/factory/pkg/factory/creator"
	"github.com/solana-token-factory/factory/pkg/factory/fee"
	"github.com/solana-token-factory/factory/pkg/factory/wallet"
)

type authorityFlags struct {
	revokeFreeze bool
	revokeMint   bool
	promoCode    string
}

func (f *authorityFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.revokeFreeze, "revoke-freeze", false, "Revoke the freeze authority")
	cmd.Flags().BoolVar(&f.revokeMint, "revoke-mint", false, "Revoke the mint authority")
	cmd.Flags().StringVar(&f.promoCode, "promo", "", "Promo code to apply to the fee")
}

func newQuoteCmd(flags *globalFlags) *cobra.Command {
	authority := &authorityFlags{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the fee for a token creation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newServices(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			quote, err := svc.creator.Quote(ctx, authority.revokeFreeze, authority.revokeMint, authority.promoCode)
			if err != nil {
				return err
			}
			printQuote(cmd.OutOrStdout(), quote)
			return nil
		},
	}

	authority.register(cmd)
	return cmd
}

func newCreateCmd(flags *globalFlags) *cobra.Command {
	authority := &authorityFlags{}
	req := &creation.Request{}
	var keypairPath string
	var timeout time.Duration
	var retries int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a token owned by the keypair's wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := loadKeypair(keypairPath)
			if err != nil {
				return err
			}

			adapter, err := wallet.NewKeypairAdapter(owner)
			if err != nil {
				return err
			}

			svc, err := newServices(flags)
			if err != nil {
				return err
			}

			req.RevokeFreeze = authority.revokeFreeze
			req.RevokeMint = authority.revokeMint
			req.PromoCode = authority.promoCode

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			attempt, err := svc.creator.Create(ctx, req, owner, adapter.Handle())
			if err != nil {
				return err
			}
			printQuote(out, attempt.Quote)

			for i := 0; i < retries && attempt.Outcome.IsRetryable(); i++ {
				fmt.Fprintf(out, "attempt %s ended with %s, resubmitting\n", attempt.ID, attempt.Outcome.Kind)

				attempt, err = svc.creator.Retry(ctx, attempt.ID, adapter.Handle())
				if err != nil {
					return err
				}
			}

			printAttempt(out, attempt)

			if err := saveRecent(flags.recentFile, svc.recent); err != nil {
				return err
			}
			return attempt.Outcome.Error()
		},
	}

	cmd.Flags().StringVar(&keypairPath, "keypair", "", "Path to the owner's keypair file")
	cmd.Flags().StringVar(&req.Name, "name", "", "Token name")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "Token symbol")
	cmd.Flags().Uint8Var(&req.Decimals, "decimals", 9, "Token decimals (5 or 9)")
	cmd.Flags().StringVar(&req.Supply, "supply", "", "Initial supply in display units")
	cmd.Flags().StringVar(&req.ImageURL, "image", "", "Token image URL")
	cmd.Flags().StringVar(&req.MetadataURI, "metadata-uri", "", "Off chain metadata URI, defaults to the image URL")
	cmd.Flags().StringVar(&req.Description, "description", "", "Token description")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "Overall timeout for creating the token")
	cmd.Flags().IntVar(&retries, "retries", 1, "Number of resubmissions after a retryable outcome")
	authority.register(cmd)

	for _, name := range []string{"keypair", "name", "symbol", "supply"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// loadKeypair reads a keypair file holding either a JSON array of the 64
// private key bytes or a base58 encoded private key
func loadKeypair(path string) (*common.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading keypair file")
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var values []byte
		var ints []int
		if err := json.Unmarshal(raw, &ints); err != nil {
			return nil, errors.Wrap(err, "invalid keypair file")
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, errors.New("invalid keypair file: byte out of range")
			}
			values = append(values, byte(v))
		}

		key, err := common.NewKeyFromBytes(values)
		if err != nil {
			return nil, err
		}
		return common.NewAccountFromPrivateKey(key)
	}

	return common.NewAccountFromPrivateKeyString(string(raw))
}

func printQuote(out io.Writer, quote fee.Quote) {
	fmt.Fprintf(out, "base fee:       %s SOL\n", fee.FormatSOL(quote.BaseFee))
	if quote.AuthorityFee > 0 {
		fmt.Fprintf(out, "authority fee:  %s SOL\n", fee.FormatSOL(quote.AuthorityFee))
	}
	if quote.HasDiscount() {
		fmt.Fprintf(out, "promo %s:  -%s SOL (%d%%)\n", quote.PromoCode, fee.FormatSOL(quote.Discount), quote.DiscountPercentage)
	}
	fmt.Fprintf(out, "total:          %s SOL\n", fee.FormatSOL(quote.Final))
}

func printAttempt(out io.Writer, attempt *creator.Attempt) {
	fmt.Fprintf(out, "mint:      %s\n", attempt.Mint)
	fmt.Fprintf(out, "outcome:   %s\n", attempt.Outcome.Kind)

	if !attempt.Signature.IsZero() {
		signature := attempt.Signature.ToBase58()
		fmt.Fprintf(out, "signature: %s\n", signature)
		fmt.Fprintf(out, "explorer:  %s\n", common.ExplorerTransactionURL(signature))
	}
	if attempt.PriorLanding {
		fmt.Fprintln(out, "an earlier submission landed, it was not resubmitted")
	}
	if attempt.Outcome.Kind == wallet.OutcomeConfirmed {
		fmt.Fprintf(out, "token:     %s\n", common.SolscanTokenURL(attempt.Mint))
	}
}
