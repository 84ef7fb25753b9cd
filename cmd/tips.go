package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/theirongolddev/compte/internal/model"
)

var tipsCmd = &cobra.Command{
	Use:     "tips",
	Aliases: []string{"optimize"},
	Short:   "Suggestions for reducing token usage",
	RunE:    runTips,
}

func init() {
	rootCmd.AddCommand(tipsCmd)
}

func runTips(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	md := tipsMarkdown(a.snap.Optimizations, windowLabel())

	style, width := "notty", 80
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		style = "auto"
		if w, _, err := term.GetSize(fd); err == nil && w > 20 {
			width = min(w-4, 100)
		}
	}

	var opt glamour.TermRendererOption
	if style == "auto" {
		opt = glamour.WithAutoStyle()
	} else {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering tips: %w", err)
	}
	fmt.Print(out)
	return nil
}

// tipsMarkdown renders tips as a markdown document, one section per tip.
func tipsMarkdown(tips []model.Tip, window string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Optimization tips (%s)\n\n", strings.ToLower(window))
	if len(tips) == 0 {
		b.WriteString("Nothing stands out. Your usage looks efficient.\n")
		return b.String()
	}
	for _, t := range tips {
		fmt.Fprintf(&b, "## %s %s\n\n", t.Icon, t.Title)
		fmt.Fprintf(&b, "*Impact: %s*\n\n", t.Impact)
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	return b.String()
}
