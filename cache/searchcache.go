// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"context"
	"daytrader/stockval"
)

type SearchRequester func(ctx context.Context) ([]stockval.SymbolMatch, error)

// SearchCache stores symbol search results per query.
type SearchCache interface {
	GetSearchResults(ctx context.Context, query string, req SearchRequester) (SymbolList, error)
}
