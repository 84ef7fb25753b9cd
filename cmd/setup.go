package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/source"
	"github.com/theirongolddev/compte/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	files, _ := source.ScanDir(flagDataDir, nil)

	cfg, err := tui.RunSetup(appCfg, len(files), flagDataDir)
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println("  Setup cancelled, nothing saved.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\n  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `compte setup` anytime to reconfigure.")
	return nil
}
