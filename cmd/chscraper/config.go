package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chscraper/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Inspect and manage chscraper configuration.

Configuration is read from (in increasing precedence): built-in
defaults, a YAML file, then environment variables. The config file is
looked up at .chscraper.yaml in the working directory and
~/.config/chscraper/config.yaml unless --config is given.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective configuration for problems",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := ".chscraper.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	fmt.Printf("Wrote default configuration to %s\n", path)
	fmt.Println("Edit it to taste; the API key is better stored via 'chscraper auth login'.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Never print the key itself
	if cfg.API.Key != "" {
		cfg.API.Key = maskKey(cfg.API.Key)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cfg.API.Key == "" {
		// Stored credentials satisfy the key requirement at runtime
		if key, kerr := resolveAPIKey(cfg); kerr == nil {
			cfg.API.Key = key
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Configuration is invalid:")
		fmt.Println(err)
		return fmt.Errorf("validation failed")
	}

	fmt.Println("Configuration is valid.")
	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
