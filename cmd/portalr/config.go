package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/secrets"
	"github.com/fdbesanto2/portalr/internal/userconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage portalr configuration",
	Long: `Manage portalr configuration settings.

Configuration is stored in ~/.portalr/config.toml (or $PORTALR_HOME/config.toml).

Available settings:
  data_path      Default base directory for the dataset
  repository     GitHub repository publishing releases (owner/name)
  archive_url    Archive landing page used with --archive
  use_archive    Use the archive for latest-version requests (true/false)
  secrets.<name> Stored credential, e.g. secrets.github_pat

Examples:
  portalr config get repository
  portalr config set data_path ~/data
  portalr config set secrets.github_pat ghp_xxx`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get the current value of a configuration setting.

Secret values are never printed; only whether they are set.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		cfg := loadUserConfig()

		value, ok := configValue(cfg, key)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Examples:
  portalr config set use_archive true
  portalr config set repository weecology/PortalData`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		cfg := loadUserConfig()

		if err := cfg.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		if isSecretKey(key) {
			fmt.Printf("%s = (set)\n", key)
			return
		}
		fmt.Printf("%s = %s\n", key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeConfigList(os.Stdout, loadUserConfig())
	},
}

func isSecretKey(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), "secrets.")
}

// configValue returns the printable value of key, masking secrets.
func configValue(cfg *userconfig.Config, key string) (string, bool) {
	if isSecretKey(key) {
		if _, ok := cfg.Get(key); ok {
			return "(set)", true
		}
		return "(not set)", true
	}
	return cfg.Get(key)
}

// writeConfigList prints every setting followed by the credential status.
func writeConfigList(w io.Writer, cfg *userconfig.Config) {
	for _, k := range sortedKeys(userconfig.AvailableKeys()) {
		v, _ := cfg.Get(k)
		fmt.Fprintf(w, "%s = %s\n", k, v)
	}
	for _, info := range secrets.KnownKeys() {
		status := "(not set)"
		if secrets.IsSet(info.Name) {
			status = "(set)"
		}
		fmt.Fprintf(w, "secrets.%s = %s\n", info.Name, status)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printAvailableKeys(w io.Writer) {
	keys := userconfig.AvailableKeys()
	for _, k := range sortedKeys(keys) {
		fmt.Fprintf(w, "  %s - %s\n", k, keys[k])
	}
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
