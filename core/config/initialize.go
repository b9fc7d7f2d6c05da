package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/afero"
)

// Initialize writes the default configuration into dir, creating it if
// needed. An existing config.yaml is left untouched.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return initialize(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

func initialize(configFs afero.Fs, logger *log.Logger) (*Configuration, error) {
	switch _, err := configFs.Stat(ConfigurationName); {
	case err == nil:
		logger.Printf("- %s already exists, skipping", ConfigurationName)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("- Writing %s", ConfigurationName)
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0644); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("checking %s: %w", ConfigurationName, err)
	}

	cfg, err := load(configFs)
	if err != nil {
		return nil, err
	}

	if cfg.EventLogEnabled() {
		logger.Printf("- Creating event log %s", cfg.EventLog)
		fd, err := cfg.OpenEventLog()
		if err != nil {
			return nil, err
		}
		fd.Close()
	}

	logger.Println("Done!")
	return cfg, nil
}
