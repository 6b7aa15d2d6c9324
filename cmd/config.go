package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", string(config.FormatConf), "Output format: conf, json, yaml or toml")
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format := config.Format(configFormat)
	if !slices.Contains(config.Formats, format) {
		return fmt.Errorf("unknown format %q (want conf, json, yaml or toml)", configFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return cfg.Encode(cmd.OutOrStdout(), format)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target := configPath
	if len(args) == 1 {
		target = args[0]
	}

	path, err := config.ResolvePath(target)
	if err != nil {
		return err
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	logSuccess("Wrote default configuration to %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.ResolvePath(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
