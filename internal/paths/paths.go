// Package paths locates the propdash config directory and the sqlite data
// directory.
package paths

import (
	"os"
	"path/filepath"
)

// Environment overrides. PROPSYNC_DATA_DIR is also the viper key for
// data_dir, so it outranks config.yaml.
const (
	EnvConfigDir = "PROPSYNC_CONFIG_DIR"
	EnvDataDir   = "PROPSYNC_DATA_DIR"
)

const (
	appName = "propsync"

	// DefaultDataDirName is created in the working directory when nothing
	// else names a data directory.
	DefaultDataDirName = ".propsync-db"

	// ConfigFileName is the configuration file inside the config directory.
	ConfigFileName = "config.yaml"
)

// userConfigDir is swapped in tests.
var userConfigDir = os.UserConfigDir

// DefaultConfigDir is propsync under the user config root
// ($XDG_CONFIG_HOME or ~/.config on Linux).
func DefaultConfigDir() (string, error) {
	root, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appName), nil
}

// ResolveConfigDir picks the config directory: flag, PROPSYNC_CONFIG_DIR,
// then DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if dir := firstSet(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the sqlite data directory: flag, PROPSYNC_DATA_DIR,
// the data_dir value from config.yaml, then ./.propsync-db.
func ResolveDataDir(flag, configured string) (string, error) {
	return filepath.Abs(firstSet(flag, os.Getenv(EnvDataDir), configured, DefaultDataDirName))
}

// ConfigFile returns the path of config.yaml in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstSet(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
