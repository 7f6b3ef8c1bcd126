// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package scanner

import "daytrader/stockval"

// AccessRule describes what a subscription tier may see of a scanner.
type AccessRule struct {
	Available    bool
	Limited      bool
	MaxResults   int
	RequiredTier stockval.Tier
}

var unlimited = AccessRule{Available: true}

func limited(maxResults int) AccessRule {
	return AccessRule{Available: true, Limited: true, MaxResults: maxResults}
}

func requires(t stockval.Tier) AccessRule {
	return AccessRule{RequiredTier: t}
}

var accessRules = map[stockval.ScannerType]map[stockval.Tier]AccessRule{
	stockval.ScannerMomentum: {
		stockval.TierFree:    limited(5),
		stockval.TierBasic:   unlimited,
		stockval.TierPro:     unlimited,
		stockval.TierPremium: unlimited,
	},
	stockval.ScannerGappers: {
		stockval.TierFree:    requires(stockval.TierBasic),
		stockval.TierBasic:   limited(10),
		stockval.TierPro:     unlimited,
		stockval.TierPremium: unlimited,
	},
	stockval.ScannerLowFloat: {
		stockval.TierFree:    requires(stockval.TierPro),
		stockval.TierBasic:   requires(stockval.TierPro),
		stockval.TierPro:     limited(15),
		stockval.TierPremium: unlimited,
	},
}

// Access returns the rule of a tier for a scanner. Users without tier are treated as free.
func Access(s stockval.ScannerType, t stockval.Tier) AccessRule {
	if len(t) == 0 {
		t = stockval.TierFree
	}
	if r, ok := accessRules[s][t]; ok {
		return r
	}
	return requires(stockval.TierPremium)
}

// Apply truncates scan results to the number of results allowed by the rule.
func (r AccessRule) Apply(result stockval.ScanResult) stockval.ScanResult {
	if !r.Available {
		result.Results = nil
		return result
	}
	if r.Limited && r.MaxResults >= 0 && len(result.Results) > r.MaxResults {
		result.Results = result.Results[:r.MaxResults]
		result.Limit = r.MaxResults
	}
	return result
}
