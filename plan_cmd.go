package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/dgnsrekt/repeat/internal/workout"
	"github.com/muesli/termenv"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	planFocus string
	planDay   string
	planTired bool
	planList  bool

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print today's workout",
		Long: paragraph(fmt.Sprintf("\n%s today's workout without starting a session. "+
			"Pick another day or a focus by name; focus names are matched fuzzily.", keyword("Print"))),
		Example: paragraph("repeat plan\nrepeat plan --day friday\nrepeat plan --focus core\nrepeat plan --list"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.OutOrStdout(), time.Now())
		},
	}
)

func runPlan(w io.Writer, now time.Time) error {
	if planList {
		_, err := fmt.Fprint(w, weeklySchedule())
		return err //nolint:wrapcheck
	}

	c, err := loadCatalog(opts.Catalog)
	if err != nil {
		return err
	}
	focus, err := resolveFocus(c, planFocus, planDay, planTired, now)
	if err != nil {
		return err
	}
	if workout.IsRestDay(focus) {
		_, err := fmt.Fprintln(w, "Today is your rest day. Enjoy the recovery!")
		return err //nolint:wrapcheck
	}

	plan, err := c.Resolve(focus)
	if err != nil {
		return fmt.Errorf("could not find a workout for %s: %w", focus, err)
	}

	out, err := renderMarkdown(workout.Markdown(plan, opts.Session.TotalSets), planStyle(), int(viper.GetUint("width"))) //nolint:gosec
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err //nolint:wrapcheck
}

// resolveFocus picks the focus to print: an explicit focus query wins, then
// the tired alternate, then the given day's schedule (today by default).
func resolveFocus(c *workout.Catalog, query, day string, tired bool, now time.Time) (string, error) {
	if query != "" {
		return matchFocus(query, c.Focuses())
	}
	if tired {
		return workout.TiredFocus, nil
	}
	weekday := now.Weekday()
	if day != "" {
		var err error
		if weekday, err = parseDay(day); err != nil {
			return "", err
		}
	}
	return workout.FocusFor(weekday), nil
}

// matchFocus returns the focus that best matches query.
func matchFocus(query string, focuses []string) (string, error) {
	matches := fuzzy.Find(query, focuses)
	if len(matches) == 0 {
		return "", fmt.Errorf("no workout matches %q, try one of: %s", query, strings.Join(focuses, ", "))
	}
	return matches[0].Str, nil
}

func parseDay(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, errors.New("unknown day: " + s)
}

func weeklySchedule() string {
	var b strings.Builder
	for d := time.Sunday; d <= time.Saturday; d++ {
		fmt.Fprintf(&b, "%-10s %s\n", d.String()+":", workout.FocusFor(d))
	}
	return b.String()
}

func planStyle() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return styles.NoTTYStyle
	}
	if termenv.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

func renderMarkdown(md, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}

func init() {
	planCmd.Flags().StringVarP(&planFocus, "focus", "f", "", "show the workout for a focus (fuzzy)")
	planCmd.Flags().StringVarP(&planDay, "day", "d", "", "show the workout scheduled for a day")
	planCmd.Flags().BoolVarP(&planTired, "tired", "t", false, "show the active recovery workout")
	planCmd.Flags().BoolVarP(&planList, "list", "l", false, "list the weekly schedule")
}
