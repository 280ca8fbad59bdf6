// Package config loads the razdbg configuration file.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".razdbg"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases.
	Aliases map[string][]string `yaml:"aliases"`

	// Prompt of the terminal front-end.
	Prompt string `yaml:"prompt,omitempty"`

	// DisableASLR launches programs with address space randomization off.
	DisableASLR bool `yaml:"disable-aslr"`

	// Theme of the full screen front-end: light or dark.
	Theme string `yaml:"theme,omitempty"`

	// SymbolCacheSize is the number of resolved source locations kept in memory.
	SymbolCacheSize int `yaml:"symbol-cache-size,omitempty"`

	// HistoryFile stores the command history of the terminal front-end.
	// Relative paths are relative to the config directory.
	HistoryFile string `yaml:"history-file,omitempty"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Aliases:         map[string][]string{},
		Prompt:          "(razdbg) ",
		Theme:           "light",
		SymbolCacheSize: 1024,
		HistoryFile:     ".history",
	}
}

// LoadConfig populates a Config from the file at path, or from
// ~/.razdbg/config.yml if path is empty. A missing default file is created.
// Options missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		if err := createConfigPath(); err != nil {
			return nil, fmt.Errorf("could not create config directory: %v", err)
		}

		var err error
		path, err = GetConfigFilePath(configFile)
		if err != nil {
			return nil, fmt.Errorf("unable to get config file path: %v", err)
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := createDefaultConfig(path); err != nil {
				return nil, err
			}
		}
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}

	if c.Aliases == nil {
		c.Aliases = map[string][]string{}
	}

	if c.HistoryFile != "" && !filepath.IsAbs(c.HistoryFile) {
		c.HistoryFile = filepath.Join(filepath.Dir(path), c.HistoryFile)
	}

	return c, nil
}

// SaveConfig will marshal and save the config struct to path
func SaveConfig(conf *Config, path string) error {
	out, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(path, out, 0600)
}

func createDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %v", err)
	}
	defer f.Close()

	if err := writeDefaultConfig(f); err != nil {
		return fmt.Errorf("unable to write default configuration: %v", err)
	}
	return nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the razdbg debugger.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]

# Prompt of the terminal front-end.
# prompt: "(razdbg) "

# Launch programs with address space layout randomization disabled.
# disable-aslr: true

# Color theme of the full screen front-end (light or dark).
# theme: dark

# Number of resolved source locations kept in memory.
# symbol-cache-size: 1024

# Command history of the terminal front-end, relative to this directory.
# history-file: .history
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, file), nil
}
