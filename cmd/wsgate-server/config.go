package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/config"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Example: `  # Write to the user config dir
  wsgate-server config init

  # Write to a specific path, replacing an existing file
  wsgate-server config init --config ./wsgate.yaml --force`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil && !forceInit {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	if err := config.Default().Save(target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	target, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(target)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal(target)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	if err != nil {
		return err
	}
	if verr := cfg.Validate(); verr != nil {
		return fmt.Errorf("configuration is invalid:\n%w", verr)
	}
	return nil
}
