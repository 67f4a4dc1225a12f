package adapters

import (
	"fmt"
	"sort"
	"strings"

	"style-shopper/internal/types"
)

type adapterFactory func(config *types.Config, logger types.Logger, fetcher types.PageFetcher) types.StoreAdapter

var registry = map[string]adapterFactory{
	"sezane": func(c *types.Config, l types.Logger, f types.PageFetcher) types.StoreAdapter {
		return NewSezaneAdapter(c, l, f)
	},
	"arket": func(c *types.Config, l types.Logger, f types.PageFetcher) types.StoreAdapter {
		return NewArketAdapter(c, l, f)
	},
}

// SupportedRetailers returns the registered retailer keys in a stable order
func SupportedRetailers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAdapter builds the adapter for a retailer with the fetch strategy from config
func NewAdapter(retailer string, config *types.Config, logger types.Logger) (types.StoreAdapter, error) {
	key := strings.ToLower(strings.TrimSpace(retailer))
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("no adapter found for retailer: %s", retailer)
	}

	fetcher, err := NewPageFetcher(config, logger, config.FetchModeFor(key))
	if err != nil {
		return nil, err
	}
	return factory(config, logger, fetcher), nil
}

// NewAdapterWithFetcher builds the adapter for a retailer around a caller supplied fetcher
func NewAdapterWithFetcher(retailer string, config *types.Config, logger types.Logger, fetcher types.PageFetcher) (types.StoreAdapter, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(retailer))]
	if !ok {
		return nil, fmt.Errorf("no adapter found for retailer: %s", retailer)
	}
	return factory(config, logger, fetcher), nil
}
