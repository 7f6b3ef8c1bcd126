// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/barkimedes/go-deepcopy"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

const TokenEnvVar = "DAYTRADER_TOKEN"

type AppConfig struct {
	Backend BackendConfig
	Market  MarketConfig
	Refresh RefreshConfig
	Log     LogConfig
}

type BackendConfig struct {
	ApiUrl string `yaml:",omitempty" default:"http://localhost:5000" validate:"required,url"`
	WsUrl  string `yaml:",omitempty" default:"ws://localhost:5000/ws/trades" validate:"omitempty,url"`
	// Tokens are usually passed by environment, see TokenEnvVar.
	Token              string `yaml:",omitempty"`
	RateLimitPerSecond int    `default:"10" validate:"gte=0"`
	// The backend sometimes does not reply, so use a timeout.
	TimeoutSeconds int `yaml:",omitempty" default:"10" validate:"gte=1,lte=300"`
}

type MarketConfig struct {
	TimeZone       string `yaml:",omitempty" default:"America/New_York" validate:"required"`
	ZoneLabel      string `yaml:",omitempty" default:"ET" validate:"required,max=8"`
	PreMarketStart string `yaml:",omitempty" default:"04:00" validate:"required,datetime=15:04"`
	CoreStart      string `yaml:",omitempty" default:"09:30" validate:"required,datetime=15:04"`
	ExtendedStart  string `yaml:",omitempty" default:"16:00" validate:"required,datetime=15:04"`
	// 24:00 is allowed here, so it is not validated as datetime.
	ExtendedEnd   string   `yaml:",omitempty" default:"20:00" validate:"required"`
	ExtraHolidays []string `yaml:",omitempty" validate:"dive,datetime=2006-01-02"`
	// Derive holidays from rules for these years in addition to the built-in table.
	RuleHolidayYears *YearRange `yaml:",omitempty"`
}

type YearRange struct {
	From int `validate:"gte=1970,lte=2200"`
	To   int `validate:"gtefield=From,lte=2200"`
}

type RefreshConfig struct {
	StatusInterval  time.Duration `yaml:",omitempty" default:"1m" validate:"gte=1s"`
	ScannerInterval time.Duration `yaml:",omitempty" default:"30s" validate:"gte=1s"`
	QuoteInterval   time.Duration `yaml:",omitempty" default:"5s" validate:"gte=1s"`
	MaxRetries      int           `default:"3" validate:"gte=0,lte=10"`
	RetryDelay      time.Duration `default:"1s" validate:"gte=0"`
	CandleCacheTTL  time.Duration `default:"30s" validate:"gte=0"`
	AutoRefresh     *bool         `yaml:",omitempty" default:"true"`
}

func (r RefreshConfig) IsAutoRefresh() bool {
	return r.AutoRefresh == nil || *r.AutoRefresh
}

type LogConfig struct {
	Level  string `yaml:",omitempty" default:"info" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `yaml:",omitempty" default:"console" validate:"oneof=console json"`
	// stdout, stderr or a file name. Files are rotated.
	Output     string `yaml:",omitempty" default:"stderr" validate:"required"`
	MaxSizeMB  int    `yaml:",omitempty" default:"20" validate:"gte=1"`
	MaxBackups int    `default:"3" validate:"gte=0"`
}

var validate = validator.New()

var defaultAppConfig = NewAppConfig()

func NewAppConfig() AppConfig {
	var a AppConfig
	if err := defaults.Set(&a); err != nil {
		panic(err)
	}
	return a
}

func (a *AppConfig) deepCopy() AppConfig {
	c, err := deepcopy.Anything(a)
	if err != nil {
		panic(err)
	}
	return *c.(*AppConfig)
}

// Sanitize restores the values removed by RemoveDefaults and validates the result.
// Zero values are kept, defaults are only applied by NewAppConfig.
func (a *AppConfig) Sanitize() error {
	a.RestoreDefaults()
	a.Market.TimeZone = strings.TrimSpace(a.Market.TimeZone)
	a.Backend.ApiUrl = strings.TrimSuffix(a.Backend.ApiUrl, "/")
	return a.Validate()
}

func (a *AppConfig) Validate() error {
	err := validate.Struct(a)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
	}
	return err
}

// ApplyEnvironment overrides settings by environment variables.
func (a *AppConfig) ApplyEnvironment() {
	if token := os.Getenv(TokenEnvVar); len(token) > 0 {
		a.Backend.Token = token
	}
}

// We do not want to store certain default values in the configuration file,
// in order to avoid having to patch them.
func (a *AppConfig) RemoveDefaults() {
	if a.Backend.ApiUrl == defaultAppConfig.Backend.ApiUrl {
		a.Backend.ApiUrl = ""
	}
	if a.Backend.WsUrl == defaultAppConfig.Backend.WsUrl {
		a.Backend.WsUrl = ""
	}
}

// Restore default values which are not stored in the configuration file.
func (a *AppConfig) RestoreDefaults() {
	if len(a.Backend.ApiUrl) == 0 {
		a.Backend.ApiUrl = defaultAppConfig.Backend.ApiUrl
	}
	if len(a.Backend.WsUrl) == 0 {
		a.Backend.WsUrl = defaultAppConfig.Backend.WsUrl
	}
}
