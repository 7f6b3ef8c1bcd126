// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import "sync"

// TestConfig keeps the configuration in memory. It is never stored.
type TestConfig struct {
	mutex     sync.Mutex
	appConfig AppConfig
}

func NewTestConfig() Config {
	return &TestConfig{
		appConfig: NewAppConfig(),
	}
}

func (t *TestConfig) GetAppName() string {
	return "test"
}

func (t *TestConfig) Lock() (*AppConfig, error) {
	t.mutex.Lock()
	c := t.appConfig.deepCopy()
	return &c, nil
}

// Unlock takes over the modified configuration if it is valid.
func (t *TestConfig) Unlock(c *AppConfig) error {
	defer t.mutex.Unlock()
	if err := c.Validate(); err != nil {
		return err
	}
	t.appConfig = *c
	return nil
}

func (t *TestConfig) Copy() (AppConfig, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.appConfig.deepCopy(), nil
}
