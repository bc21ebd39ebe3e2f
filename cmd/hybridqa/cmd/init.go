package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  "Create .hybridqa/config.yaml in the current directory with documented defaults.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(c *cobra.Command, _ []string) error {
	path := config.ProjectConfigPath
	if cfgFile != "" {
		path = cfgFile
	}
	if err := config.WriteDefault(path, initForce); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
