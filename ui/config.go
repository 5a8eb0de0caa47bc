package ui

// Config contains TUI-specific configuration.
type Config struct {
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	GlamourMaxWidth uint   `env:"REPEAT_WIDTH" envDefault:"80"`
	EnableMouse     bool

	// Engine name shown in the status bar
	EngineName string

	// For debugging the UI
	AltScreen bool `env:"REPEAT_ALT_SCREEN" envDefault:"true"`
}
