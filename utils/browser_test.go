package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"style-shopper/internal/types"
)

func TestLocateBrowser_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	got, err := LocateBrowser(path)

	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestLocateBrowser_MissingExplicitPath(t *testing.T) {
	_, err := LocateBrowser(filepath.Join(t.TempDir(), "no-such-chrome"))
	assert.ErrorIs(t, err, ErrBrowserUnavailable)

	_, err = LocateBrowser(t.TempDir())
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestNewBrowserClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	config := types.DefaultConfig()
	config.BrowserPath = path

	client, err := NewBrowserClient(config, logrus.New())

	require.NoError(t, err)
	assert.Equal(t, path, client.execPath)
	assert.Equal(t, 3, client.scrollCount)
	client.Close()
}

func TestNewBrowserClient_Unavailable(t *testing.T) {
	config := types.DefaultConfig()
	config.BrowserPath = filepath.Join(t.TempDir(), "missing")

	client, err := NewBrowserClient(config, logrus.New())

	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func lifecycle(name string, frameID cdp.FrameID, loaderID cdp.LoaderID) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{Name: name, FrameID: frameID, LoaderID: loaderID}
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestIsMainDocumentIdle(t *testing.T) {
	tests := []struct {
		name  string
		event *page.EventLifecycleEvent
		want  bool
	}{
		{"main document idle", lifecycle("networkIdle", "main", "nav-2"), true},
		{"iframe idle", lifecycle("networkIdle", "ad-frame", "nav-2"), false},
		{"previous document idle", lifecycle("networkIdle", "main", "nav-1"), false},
		{"main document load", lifecycle("load", "main", "nav-2"), false},
		{"almost idle", lifecycle("networkAlmostIdle", "main", "nav-2"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isMainDocumentIdle(tt.event, "main", "nav-2"))
		})
	}
}

func TestIdleWatcher_IgnoresOtherFramesAndLoaders(t *testing.T) {
	w := newIdleWatcher()

	w.observe(lifecycle("networkIdle", "main", "nav-1"))
	w.observe(lifecycle("networkIdle", "ad-frame", "ad-loader"))
	w.arm("main", "nav-2")
	assert.False(t, isClosed(w.idle))

	w.observe(lifecycle("networkIdle", "tracking-frame", "nav-2"))
	w.observe(lifecycle("load", "main", "nav-2"))
	assert.False(t, isClosed(w.idle))

	w.observe(lifecycle("networkIdle", "main", "nav-2"))
	assert.True(t, isClosed(w.idle))

	// repeated events after idle are harmless
	w.observe(lifecycle("networkIdle", "main", "nav-2"))
}

func TestIdleWatcher_IdleBeforeNavigateReturns(t *testing.T) {
	w := newIdleWatcher()

	w.observe(lifecycle("networkIdle", "main", "nav-2"))
	assert.False(t, isClosed(w.idle))

	w.arm("main", "nav-2")
	assert.True(t, isClosed(w.idle))
}

func TestBrowserSession_CloseOrder(t *testing.T) {
	var calls []string
	record := func(name string) context.CancelFunc {
		return func() { calls = append(calls, name) }
	}

	s := &browserSession{
		allocCancel:   record("allocator"),
		browserCtx:    context.Background(),
		browserCancel: record("browser"),
		pageCtx:       context.Background(),
		pageCancel:    record("page"),
	}
	s.Close()

	assert.Equal(t, []string{"page", "browser", "allocator"}, calls)
}

func TestBrowserSession_ClosePartiallyOpened(t *testing.T) {
	var calls []string
	record := func(name string) context.CancelFunc {
		return func() { calls = append(calls, name) }
	}

	// launch failed: no page context yet
	s := &browserSession{
		allocCancel:   record("allocator"),
		browserCtx:    context.Background(),
		browserCancel: record("browser"),
	}
	assert.NotPanics(t, s.Close)
	assert.Equal(t, []string{"browser", "allocator"}, calls)

	calls = nil
	s = &browserSession{allocCancel: record("allocator")}
	assert.NotPanics(t, s.Close)
	assert.Equal(t, []string{"allocator"}, calls)
}
