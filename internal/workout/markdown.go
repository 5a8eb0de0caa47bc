package workout

import (
	"fmt"
	"strings"
)

// Markdown formats p as a markdown document for glamour.
func Markdown(p *Plan, sets int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Focus)
	fmt.Fprintf(&b, "_%d Sets / %s_\n\n", sets, p.TotalDuration)
	if p.VoiceScript.Intro != "" {
		fmt.Fprintf(&b, "> %s\n\n", p.VoiceScript.Intro)
	}

	for i, ex := range p.Workout {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, ex.Name)
		fmt.Fprintf(&b, "**%s** (%ds)", ex.RepsSetsDisplay, ex.DurationSeconds)
		if len(ex.Muscles) > 0 {
			fmt.Fprintf(&b, " · %s", strings.Join(ex.Muscles, ", "))
		}
		b.WriteString("\n\n")
		if ex.Instructions != "" {
			fmt.Fprintf(&b, "%s\n\n", ex.Instructions)
		}
		for _, tip := range ex.FormTips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
		if len(ex.FormTips) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
