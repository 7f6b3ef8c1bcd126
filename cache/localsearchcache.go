// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"context"
	"daytrader/stockval"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lotodore/localcache"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "search_"

// Symbol search results are cached for some hours.
const SearchCacheMaxAge = time.Hour * 12

type localSearchCache struct {
	data     *localcache.Cache
	initLock sync.Mutex
	logger   zerolog.Logger
}

func NewLocalSearchCache(appName string, logger zerolog.Logger) (SearchCache, error) {
	data, err := localcache.New(filepath.Join(appName, "search"))
	if err != nil {
		return nil, fmt.Errorf("error initializing search cache: %w", err)
	}
	return &localSearchCache{data: data, logger: logger}, nil
}

func cacheKey(query string) string {
	n := stockval.NormalizeAssetName(query)
	return cacheKeyPrefix + strings.NewReplacer(" ", "_", "/", "_").Replace(n)
}

func (c *localSearchCache) GetSearchResults(ctx context.Context, query string, req SearchRequester) (SymbolList, error) {
	key := cacheKey(query)
	err := c.data.PurgeKey(key, SearchCacheMaxAge)
	if err != nil {
		c.logger.Warn().Str("key", key).Msg("error purging cache, search data may be outdated")
	}
	if symbols := c.readFromCache(key); symbols != nil {
		return symbols, nil
	}
	return c.initCache(ctx, key, req)
}

func (c *localSearchCache) readFromCache(key string) SymbolList {
	raw, err := c.data.ReadFile(key)
	if err == nil {
		var symbols SymbolList
		err := json.Unmarshal(raw, &symbols)
		if err == nil {
			return symbols
		}
		c.logger.Warn().Str("key", key).Msg("search cache contains invalid data")
		err = c.data.Remove(key)
		if err != nil {
			c.logger.Warn().Str("key", key).Msg("error deleting cache, search data may be invalid")
		}
	}
	return nil
}

func (c *localSearchCache) initCache(ctx context.Context, key string, req SearchRequester) (SymbolList, error) {
	c.initLock.Lock()
	defer c.initLock.Unlock()
	// retry reading cache within lock, to avoid requesting the data twice.
	if cached := c.readFromCache(key); cached != nil {
		return cached, nil
	}
	c.logger.Debug().Str("key", key).Msg("requesting symbol search")
	symbols, err := req(ctx)
	if err != nil {
		return nil, err
	}
	list := SymbolList(symbols)
	if list == nil {
		list = SymbolList{}
	}
	sort.Sort(list)
	text, err := json.Marshal(&list)
	if err != nil {
		return nil, err
	}
	if err = c.data.WriteFile(key, text); err != nil {
		return nil, err
	}
	return list, nil
}
