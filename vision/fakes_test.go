package vision

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"style-shopper/internal/types"
)

// fakeModel answers by looking up the product name in the prompt
type fakeModel struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	err       error
	delay     time.Duration
	calls     int
	images    [][]Image
	prompts   []string

	inFlight    int32
	maxInFlight int32
}

func (f *fakeModel) Complete(ctx context.Context, images []Image, prompt string, maxTokens int) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.images = append(f.images, images)
	f.prompts = append(f.prompts, prompt)

	if f.err != nil {
		return "", f.err
	}
	for name, resp := range f.responses {
		if strings.Contains(prompt, "- Name: "+name+"\n") {
			return resp, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImages struct {
	mu        sync.Mutex
	failing   map[string]bool
	mediaType string
	fetched   []string
}

func (f *fakeImages) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if f.failing[url] {
		return nil, "", errors.New("connection reset")
	}
	mediaType := f.mediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return []byte("img:" + url), mediaType, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]types.MatchResult
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]types.MatchResult)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*types.MatchResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, result types.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}
