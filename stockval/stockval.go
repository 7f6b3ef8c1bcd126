// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package stockval

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ericlagergren/decimal"
)

type ScannerType string

const (
	ScannerMomentum ScannerType = "momentum"
	ScannerGappers  ScannerType = "gappers"
	ScannerLowFloat ScannerType = "low_float"
)

var ScannerTypes = []ScannerType{ScannerMomentum, ScannerGappers, ScannerLowFloat}

func ParseScannerType(s string) (ScannerType, error) {
	t := ScannerType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if IndexOf(ScannerTypes, t) < 0 {
		return "", fmt.Errorf("unknown scanner type: %s", s)
	}
	return t, nil
}

// Endpoint returns the path segment used by the backend, e.g. "low-float".
func (t ScannerType) Endpoint() string {
	return strings.ReplaceAll(string(t), "_", "-")
}

// Title is the display name, e.g. "Low float".
func (t ScannerType) Title() string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

type ScannerInfo struct {
	Enabled      bool   `json:"enabled"`
	Available    bool   `json:"available"`
	RequiredTier Tier   `json:"required_tier,omitempty"`
	Description  string `json:"description,omitempty"`
}

type ScannerStatus struct {
	Scanners map[ScannerType]ScannerInfo `json:"scanners"`
	Tier     Tier                        `json:"tier,omitempty"`
}

func (s ScannerStatus) IsEnabled(t ScannerType) bool {
	return s.Scanners[t].Enabled
}

type ScanCriteria struct {
	Description string `json:"description,omitempty"`
}

type ScanCandidate struct {
	Symbol         string       `json:"symbol"`
	Price          *decimal.Big `json:"price,omitempty"`
	PercentChange  *decimal.Big `json:"percent_change,omitempty"`
	Volume         float64      `json:"volume,omitempty"`
	RelativeVolume float64      `json:"relative_volume,omitempty"`
	Float          float64      `json:"float,omitempty"`
	MarketCap      float64      `json:"market_cap,omitempty"`
	Catalyst       string       `json:"catalyst,omitempty"`
}

type ScanResult struct {
	Scanner    ScannerType     `json:"-"`
	Results    []ScanCandidate `json:"results"`
	Criteria   *ScanCriteria   `json:"criteria,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Count      int             `json:"count,omitempty"`
	LastUpdate time.Time       `json:"-"`
}

// Quote follows the quote format of the market data provider behind the backend.
type Quote struct {
	Symbol             string       `json:"symbol,omitempty"`
	CurrentPrice       *decimal.Big `json:"c,omitempty"`
	Change             *decimal.Big `json:"d,omitempty"`
	DeltaPercentage    *decimal.Big `json:"dp,omitempty"`
	HighPrice          *decimal.Big `json:"h,omitempty"`
	LowPrice           *decimal.Big `json:"l,omitempty"`
	OpenPrice          *decimal.Big `json:"o,omitempty"`
	PreviousClosePrice *decimal.Big `json:"pc,omitempty"`
	Timestamp          int64        `json:"t,omitempty"`
}

func (q Quote) IsValid() bool {
	return q.CurrentPrice != nil && q.PreviousClosePrice != nil
}

type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol,omitempty"`
	Description   string `json:"description,omitempty"`
	SecurityType  string `json:"type,omitempty"`
}

// Backend view of the market, used for display next to the local classification.
type BackendMarketStatus struct {
	IsOpen   bool   `json:"isOpen"`
	Session  string `json:"session,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Holiday  string `json:"holiday,omitempty"`
}

var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

var alphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}/ ]+`)

func NormalizeAssetName(n string) string {
	return strings.TrimSpace(strings.ToUpper(alphanumericRegex.ReplaceAllString(n, "")))
}

// NormalizeSymbol upper-cases a ticker and rejects anything that cannot be one.
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !symbolRegex.MatchString(s) {
		return "", fmt.Errorf("invalid symbol %q", s)
	}
	return s, nil
}

func IndexOf[T comparable](s []T, e T) int {
	for i, v := range s {
		if v == e {
			return i
		}
	}
	return -1
}
