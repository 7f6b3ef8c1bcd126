// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"daytrader/stockval"
	"strings"
)

type SymbolList []stockval.SymbolMatch

func (x SymbolList) Len() int           { return len(x) }
func (x SymbolList) Less(i, j int) bool { return x[i].Symbol < x[j].Symbol }
func (x SymbolList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

// Searches for corresponding entries with the following priorities:
// Exact symbol matches are always preferred
// Symbol prefix matches are next
// Company name prefix matches are next
// Company name substring matches are last
func (l SymbolList) Find(t string, maxNum int, unambiguousLookup bool) SymbolList {
	t = stockval.NormalizeAssetName(t)
	if len(t) == 0 {
		return SymbolList{}
	}
	var result SymbolList
	for _, a := range l {
		if a.Symbol == t {
			// exact match should be first result
			result = SymbolList{a}
			break
		}
	}
	if unambiguousLookup {
		return result
	}
	for _, a := range l {
		if strings.HasPrefix(a.Symbol, t) {
			result = appendIfNotDuplicate(result, a, maxNum)
		}
	}
	for _, a := range l {
		if strings.HasPrefix(stockval.NormalizeAssetName(a.Description), t) {
			result = appendIfNotDuplicate(result, a, maxNum)
		}
	}
	for _, a := range l {
		if strings.Contains(stockval.NormalizeAssetName(a.Description), t) {
			result = appendIfNotDuplicate(result, a, maxNum)
		}
	}
	return result
}

func appendIfNotDuplicate(l SymbolList, a stockval.SymbolMatch, maxNum int) SymbolList {
	if maxNum > 0 && len(l) >= maxNum {
		return l
	}
	for _, o := range l {
		if o == a {
			return l
		}
	}
	return append(l, a)
}
