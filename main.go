// Package main provides the entry point for the Repeat CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/session"
	"github.com/dgnsrekt/repeat/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	tired      bool
	mute       bool
	sets       int
	mouse      bool
	width      uint
	opts       settings

	envKeyReplacer = strings.NewReplacer(".", "_")

	rootCmd = &cobra.Command{
		Use:   "repeat",
		Short: "Guided, timed workouts with spoken cues",
		Long: paragraph(
			fmt.Sprintf("\nGuided, timed workouts %s. Repeat walks you through today's exercises and rests, and tells you what's next.", keyword("with spoken cues")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// skipValidation marks commands that must work with a broken config.
const skipValidation = "skip-validation"

func validateOptions(cmd *cobra.Command) error {
	if _, ok := cmd.Annotations[skipValidation]; ok {
		return nil
	}
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	// Flags without a config default only apply when given.
	if cmd.Flags().Changed("sets") {
		viper.Set("session.total_sets", sets)
	}
	if mute {
		viper.Set("audio.enabled", false)
	}

	s, err := loadSettings(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	opts = s
	log.SetLevel(opts.LogLevel)

	mouse = viper.GetBool("mouse")
	width = viper.GetUint("width")
	if width == 0 {
		width = 80
	}
	return nil
}

func execute(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("repeat needs an interactive terminal; use \"repeat plan\" to print today's workout")
	}

	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	if cfg.GlamourStyle == "" {
		cfg.GlamourStyle = styles.AutoStyle
	}
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.EngineName = string(opts.Engine)

	var p *tea.Program
	a, err := newApp(opts, session.WithSnapshotHandler(func(s session.Snapshot) {
		p.Send(ui.SnapshotMsg(s))
	}))
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	p = ui.NewProgram(cfg, a.runner, a.runner.Snapshot())
	if tired {
		a.runner.FetchWorkout(true)
	}

	return a.run(cmd.Context(), func() error {
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("unable to run tui program: %w", err)
		}
		return nil
	})
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	setDefaults(viper.GetViper())
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("catalog", "", "custom workout catalog (YAML)")
	rootCmd.PersistentFlags().IntVar(&sets, "sets", 0, "number of sets per workout")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&tired, "tired", "t", false, "start with the active recovery workout")
	rootCmd.Flags().StringP("engine", "e", "", "speech engine (piper, gtts, mock)")
	rootCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolVar(&mute, "mute", false, "disable audio output")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("tts.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("metrics.addr", rootCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("width", 0)
	viper.SetDefault("mouse", false)

	rootCmd.AddCommand(configCmd, manCmd, planCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "repeat")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "repeat")}, dirs...)
	}

	if c := os.Getenv("REPEAT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("repeat")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("repeat")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "repeat.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
