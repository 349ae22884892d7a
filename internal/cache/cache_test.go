// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = %v, %v", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestExpiry(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	c.SetWithTTL("k", "v", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry served")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d", stats.Evictions)
	}
	if stats.Keys != 0 {
		t.Errorf("keys = %d, expired entry not removed", stats.Keys)
	}
}

func TestDeleteAndClear(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key present")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("cleared key present")
	}
	if stats := c.GetStats(); stats.Keys != 0 {
		t.Errorf("keys after clear = %d", stats.Keys)
	}
}

func TestStatsCounters(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("nope")

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Keys != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
				c.GetStats()
			}
		}(i)
	}
	wg.Wait()

	if stats := c.GetStats(); stats.Keys != 4 {
		t.Errorf("keys = %d", stats.Keys)
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()
	a := GenerateKey("arbitrate", map[string]string{"phrase": "connect"})
	b := GenerateKey("arbitrate", map[string]string{"phrase": "connect"})
	if a != b {
		t.Errorf("key not deterministic: %q vs %q", a, b)
	}

	other := GenerateKey("arbitrate", map[string]string{"phrase": "kinesis"})
	if a == other {
		t.Error("distinct params share a key")
	}
	if diffMethod := GenerateKey("resolve", map[string]string{"phrase": "connect"}); diffMethod == a {
		t.Error("distinct methods share a key")
	}
}
