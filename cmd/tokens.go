package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/maximbilan/hivecouncil/internal/cost"
	"github.com/maximbilan/hivecouncil/internal/provider"
	"github.com/spf13/cobra"
)

var tokensProviders []string

var tokensCmd = &cobra.Command{
	Use:   "tokens [text]",
	Short: "Count tokens and estimate input cost per backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		providers, err := selectProviders(rt.registry, tokensProviders)
		if err != nil {
			return err
		}
		renderTokens(cmd.OutOrStdout(), providers, strings.Join(args, " "))
		return nil
	},
}

func init() {
	tokensCmd.Flags().StringSliceVarP(&tokensProviders, "provider", "p", nil, "backends to count for (default: every configured backend)")
	rootCmd.AddCommand(tokensCmd)
}

func renderTokens(w io.Writer, providers []provider.Provider, text string) {
	fmt.Fprintln(w, headerStyle.Render("Token counts"))
	for _, p := range providers {
		pricing := p.Pricing()
		est := cost.Compute(p.CountTokens(text), 0, pricing)
		fmt.Fprintf(w, "  %-10s %-28s %6d tokens  $%.2f/$%.2f per 1M  input $%.6f\n",
			p.Name(), p.Model(), est.InputTokens, pricing.Input, pricing.Output, est.InputCost)
	}
}
