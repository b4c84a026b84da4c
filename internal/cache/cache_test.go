package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheBasicOperations(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("k", "v")

		got, exists := cache.Get("k")
		if !exists {
			t.Error("Expected key to exist")
		}
		if got != "v" {
			t.Errorf("Expected %q, got %q", "v", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		if _, exists := cache.Get("missing"); exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache.Set("gone", "v")
		cache.Delete("gone")
		if _, exists := cache.Get("gone"); exists {
			t.Error("Expected key to be deleted")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		cache.Set("a", "1")
		cache.Set("b", "2")
		cache.Clear()
		if _, exists := cache.Get("a"); exists {
			t.Error("Expected cache to be empty after Clear")
		}
	})
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Set(n, n*2)
			cache.Get(n)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		got, exists := cache.Get(i)
		if !exists || got != i*2 {
			t.Errorf("key %d: got %d (exists=%v), expected %d", i, got, exists, i*2)
		}
	}
}

func TestRenderedSectionCache(t *testing.T) {
	ClearRenderedSectionCache()

	if _, found := GetRenderedSection("hash1", "gruvbox"); found {
		t.Error("Expected cache miss on empty cache")
	}

	SetRenderedSection("hash1", "gruvbox", []byte("<p>hi</p>"))

	html, found := GetRenderedSection("hash1", "gruvbox")
	if !found {
		t.Fatal("Expected cache hit")
	}
	if string(html) != "<p>hi</p>" {
		t.Errorf("got %q", html)
	}

	// Same content under a different theme is a distinct entry.
	if _, found := GetRenderedSection("hash1", "catppuccin-latte"); found {
		t.Error("Expected miss for different syntax theme")
	}

	for i := 0; i < 3; i++ {
		SetRenderedSection(fmt.Sprintf("h%d", i), "gruvbox", []byte("x"))
	}
	ClearRenderedSectionCache()
	if _, found := GetRenderedSection("h0", "gruvbox"); found {
		t.Error("Expected empty cache after clear")
	}
}
