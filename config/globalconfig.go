// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const AppName = "daytrader"
const configFileName = "globalconfig.yaml"
const configFileVersion = 1

type GlobalConfig struct {
	loaded         bool
	fileName       string
	version        VersionConfig
	appConfig      AppConfig
	appConfigMutex sync.Mutex
	logger         zerolog.Logger
}

type VersionConfig struct {
	FileVersion int
}

// NewGlobalConfig creates a configuration stored in fileName.
// If fileName is empty, the file is placed in the user configuration directory.
func NewGlobalConfig(fileName string, logger zerolog.Logger) Config {
	return &GlobalConfig{
		fileName: fileName,
		version: VersionConfig{
			FileVersion: configFileVersion,
		},
		appConfig: NewAppConfig(),
		logger:    logger,
	}
}

func (g *GlobalConfig) GetAppName() string {
	return AppName
}

// Locks access to the configuration and returns a copy which can be modified.
// Unlock needs to be called afterwards, if no error was returned.
func (g *GlobalConfig) Lock() (*AppConfig, error) {
	g.appConfigMutex.Lock()
	if !g.loaded {
		err := g.read()
		if err != nil {
			g.appConfigMutex.Unlock()
			return nil, err
		}
	}
	appConfigCopy := g.appConfig.deepCopy()
	return &appConfigCopy, nil
}

// Update the configuration and unlock access.
// If the configuration was changed, the configuration will be written before unlocking.
func (g *GlobalConfig) Unlock(c *AppConfig) error {
	var err error
	if !cmp.Equal(g.appConfig, *c) {
		g.appConfig = *c
		err = g.write()
	}
	g.appConfigMutex.Unlock()
	return err
}

// Copy returns the configuration including environment overrides.
func (g *GlobalConfig) Copy() (AppConfig, error) {
	g.appConfigMutex.Lock()
	defer g.appConfigMutex.Unlock()
	if !g.loaded {
		err := g.read()
		if err != nil {
			return AppConfig{}, err
		}
	}
	c := g.appConfig.deepCopy()
	c.ApplyEnvironment()
	return c, nil
}

func (g *GlobalConfig) getConfigFileName() (string, error) {
	if len(g.fileName) > 0 {
		return g.fileName, nil
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine configuration path: %w", err)
	}
	return filepath.Join(userConfigDir, g.GetAppName(), configFileName), nil
}

func (g *GlobalConfig) read() error {
	// A missing .env file is fine, the token may be set otherwise.
	if err := godotenv.Load(); err != nil {
		g.logger.Debug().Err(err).Msg("no .env file loaded")
	}
	fileName, err := g.getConfigFileName()
	if err != nil {
		return err
	}
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		// It is fine if the configuration file does not yet exist.
		g.logger.Info().Str("file", fileName).Msg("configuration file does not yet exist, using defaults")
		g.loaded = true
		return g.appConfig.Sanitize()
	}
	file, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	err = yaml.Unmarshal(file, &g.version)
	if err != nil {
		return fmt.Errorf("failed to parse configuration version: %w", err)
	}
	// Avoid removing new unknown settings if an old release is started with a newer config file.
	if g.version.FileVersion > configFileVersion {
		return fmt.Errorf(
			"invalid configuration file version %d instead of %d, probably from a newer release",
			g.version.FileVersion,
			configFileVersion)
	}
	// Settings missing in the file keep their defaults.
	appConfig := NewAppConfig()
	err = yaml.Unmarshal(file, &appConfig)
	if err != nil {
		return fmt.Errorf("failed to parse app configuration: %w", err)
	}
	if err = appConfig.Sanitize(); err != nil {
		return fmt.Errorf("configuration file %s: %w", fileName, err)
	}
	g.appConfig = appConfig
	g.version.FileVersion = configFileVersion
	g.loaded = true
	return nil
}

func (g *GlobalConfig) write() error {
	fileName, err := g.getConfigFileName()
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(fileName), 0700)
	if err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	if err = g.appConfig.Sanitize(); err != nil {
		return err
	}
	g.appConfig.RemoveDefaults()
	fileVersion, err := yaml.Marshal(&g.version)
	if err != nil {
		return fmt.Errorf("error generating configuration version: %w", err)
	}
	fileAppConfig, err := yaml.Marshal(&g.appConfig)
	if err != nil {
		return fmt.Errorf("error generating app configuration: %w", err)
	}
	g.appConfig.RestoreDefaults()

	file := append(fileVersion, fileAppConfig...)
	tmpFileName := fileName + ".tmp"
	// Writing may fail, so we write to a temporary file and replace afterwards.
	err = os.WriteFile(tmpFileName, file, 0600)
	if err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	err = os.Rename(tmpFileName, fileName)
	if err != nil {
		return fmt.Errorf("failed to replace configuration file: %w", err)
	}
	return nil
}
