package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# sets per workout and rest lengths
session:
  total_sets: 4
  rest_seconds: 30
  set_rest_seconds: 90
  # delay before announcing the next exercise during a rest
  announce_delay: "1.5s"

# custom workout catalog (YAML); leave empty for the built-in one
catalog: ""
# reload the custom catalog when it changes
catalog_watch: true

# spoken cues
tts:
  # engine: piper, gtts or mock
  engine: "mock"
  # used after the engine fails twice in a row, or when it can't start
  fallback: ""
  # parallel synthesis while preparing a workout
  concurrency: 4
  piper:
    binary: "piper"
    # model: "~/.local/share/piper/en_US-lessac-medium.onnx"
    speed: 1.0
  gtts:
    language: "en"
    slow: false
    requests_per_minute: 50
  # keeps synthesized audio between runs; leave dir empty to disable
  cache:
    dir: ""
    # megabytes
    max_size: 100

audio:
  enabled: true
  # 44100 or 48000
  sample_rate: 44100

# serve Prometheus metrics, e.g. "localhost:9464"
metrics:
  addr: ""

log:
  level: "info"
  # file: "~/repeat.log"
`

var configCmd = &cobra.Command{
	Use:         "config",
	Hidden:      false,
	Short:       "Edit the repeat config file",
	Long:        paragraph(fmt.Sprintf("\n%s the repeat config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example:     paragraph("repeat config\nrepeat config --config path/to/repeat.yml"),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipValidation: "true"},
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Repeat", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
