package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const configFileName = "spvregular.toml"

type fileConfig struct {
	Regularize regularizeConfig `toml:"regularize"`
	Trace      traceConfig      `toml:"trace"`
	Run        runConfig        `toml:"run"`

	// Path is where the config was read from, empty for defaults.
	Path string `toml:"-"`
}

type regularizeConfig struct {
	SaveRegularized bool   `toml:"save_regularized"`
	SnapshotPath    string `toml:"snapshot_path"`
	PassName        string `toml:"pass_name"`
}

type traceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
}

type runConfig struct {
	Jobs   int    `toml:"jobs"`
	OutDir string `toml:"out_dir"`
	Cache  bool   `toml:"cache"`
}

// activeConfig is the configuration loaded for the running command.
var activeConfig fileConfig

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func readConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fileConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Run.Jobs < 0 {
		return fileConfig{}, fmt.Errorf("%s: [run].jobs must not be negative", path)
	}
	if cfg.Run.OutDir != "" && !filepath.IsAbs(cfg.Run.OutDir) {
		cfg.Run.OutDir = filepath.Join(filepath.Dir(path), cfg.Run.OutDir)
	}
	cfg.Path = path
	return cfg, nil
}

// loadConfig reads --config, or the nearest spvregular.toml above the working
// directory. No file yields the zero config.
func loadConfig(cmd *cobra.Command) (fileConfig, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil || !ok {
			return fileConfig{}, err
		}
		path = found
	}
	return readConfig(path)
}
