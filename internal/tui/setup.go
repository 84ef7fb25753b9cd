package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

// setupValues holds the answers bound to the setup form fields.
type setupValues struct {
	claudeDir string
	days      int
	theme     string
	cache     string
}

func newSetupValues(cfg config.Config) setupValues {
	v := setupValues{
		claudeDir: cfg.General.ClaudeDir,
		days:      cfg.General.DefaultDays,
		theme:     cfg.Appearance.Theme,
		cache:     cfg.Cache.Backend,
	}
	if v.cache == "" {
		v.cache = config.CacheJSON
	}
	v.theme = theme.ByName(v.theme).Name
	return v
}

// apply returns cfg with the form answers written into it.
func (v setupValues) apply(cfg config.Config) config.Config {
	cfg.General.ClaudeDir = v.claudeDir
	cfg.General.DefaultDays = v.days
	cfg.Appearance.Theme = v.theme
	cfg.Cache.Backend = v.cache
	return cfg
}

// newSetupForm builds the first-run form. It writes answers into vals.
func newSetupForm(sessionCount int, claudeDir string, vals *setupValues) *huh.Form {
	themeOpts := huh.NewOptions(theme.Names()...)

	welcome := "Let's set up a few defaults. You can change them later in the config file."
	if sessionCount > 0 {
		welcome = fmt.Sprintf("Found %d session files in %s.\n\n%s", sessionCount, claudeDir, welcome)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to compte").
				Description(welcome),
			huh.NewInput().
				Title("Claude data directory").
				Description("Leave empty for ~/.claude").
				Placeholder(claudeDir).
				Value(&vals.claudeDir),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Default time range").
				Options(
					huh.NewOption("All time", 0),
					huh.NewOption("Last 7 days", 7),
					huh.NewOption("Last 30 days", 30),
					huh.NewOption("Last 90 days", 90),
				).
				Value(&vals.days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
			huh.NewSelect[string]().
				Title("Query cache").
				Description("Parsed sessions are cached so later runs only reparse changed files.").
				Options(
					huh.NewOption("JSON file", config.CacheJSON),
					huh.NewOption("SQLite database", config.CacheSQLite),
					huh.NewOption("No cache", config.CacheNone),
				).
				Value(&vals.cache),
		),
	).WithShowHelp(true)
}

// RunSetup runs the setup form in the terminal and returns the updated config.
func RunSetup(cfg config.Config, sessionCount int, claudeDir string) (config.Config, error) {
	vals := newSetupValues(cfg)
	if err := newSetupForm(sessionCount, claudeDir, &vals).Run(); err != nil {
		return cfg, err
	}
	return vals.apply(cfg), nil
}
