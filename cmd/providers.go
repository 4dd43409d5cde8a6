package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/provider"
	"github.com/spf13/cobra"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List backends and whether they are configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		infos := rt.registry.Describe()
		if providersJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		renderProviders(cmd.OutOrStdout(), infos)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "Show the default and available models of a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, ok := catalog.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown provider %q (known: %s)", args[0], strings.Join(catalog.Names(), ", "))
		}

		current := ""
		if rt, err := bootstrap(cmd); err == nil {
			defer rt.Close()
			if p, err := rt.registry.Get(entry.Name); err == nil {
				current = p.Model()
			}
		}
		renderModels(cmd.OutOrStdout(), entry, current)
		return nil
	},
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "print as JSON")
	providersCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(providersCmd)
}

func renderProviders(w io.Writer, infos []provider.Info) {
	fmt.Fprintln(w, headerStyle.Render("Providers"))
	for _, info := range infos {
		status := mutedStyle.Render("not configured")
		model := info.DefaultModel
		if info.Configured {
			status = okStyle.Render("configured")
			model = info.CurrentModel
		}
		fmt.Fprintf(w, "  %-10s %-16s %-28s %s\n", info.Name, info.DisplayName, model, status)
	}
}

func renderModels(w io.Writer, entry catalog.Entry, current string) {
	fmt.Fprintln(w, headerStyle.Render(entry.DisplayName+" models"))
	for _, model := range entry.AvailableModels {
		var marks []string
		if model == entry.DefaultModel {
			marks = append(marks, "default")
		}
		if model == current {
			marks = append(marks, "current")
		}
		line := "  " + model
		if len(marks) > 0 {
			line += " " + mutedStyle.Render("("+strings.Join(marks, ", ")+")")
		}
		fmt.Fprintln(w, line)
	}
	if current != "" && !slices.Contains(entry.AvailableModels, current) {
		fmt.Fprintf(w, "  %s %s\n", current, mutedStyle.Render("(current, not in catalog)"))
	}
}
