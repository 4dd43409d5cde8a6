package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maximbilan/hivecouncil/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], displayValue(args[0], args[1]))
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], displayValue(args[0], config.Get(args[0])))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", filepath.Join(dir, "config.yaml"))
		fmt.Fprintf(out, "Set an API key with: %s config set openai_api_key YOUR_KEY\n", appName)
		return nil
	},
}

func init() {
	configCmd.AddCommand(setCmd)
	configCmd.AddCommand(getCmd)
	configCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

// isSensitiveConfigKey reports whether key holds a credential.
func isSensitiveConfigKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(key)), "api_key")
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

func displayValue(key string, value any) any {
	if !isSensitiveConfigKey(key) {
		return value
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return value
	}
	return maskSecret(s)
}
