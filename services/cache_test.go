package services

import (
	"testing"
	"time"

	"mbti_recommender/models"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache()
	list := &models.RankedList{UserID: 1, Reason: models.ReasonOK}

	key := CacheKey(1, models.RecommendationOptions{Limit: 50, SimilarityThreshold: 0.5})
	c.Put(key, list, time.Minute)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.UserID != 1 {
		t.Errorf("cached UserID = %d, want 1", got.UserID)
	}

	if _, ok := c.Get("uid:2|missing"); ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	key := CacheKey(1, models.RecommendationOptions{Limit: 10})
	c.Put(key, &models.RankedList{}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	c := NewMemoryCache()
	k1 := CacheKey(1, models.RecommendationOptions{Limit: 10})
	k2 := CacheKey(1, models.RecommendationOptions{Limit: 20})
	k3 := CacheKey(11, models.RecommendationOptions{Limit: 10})
	c.Put(k1, &models.RankedList{}, time.Minute)
	c.Put(k2, &models.RankedList{}, time.Minute)
	c.Put(k3, &models.RankedList{}, time.Minute)

	c.InvalidateUser(1)

	if _, ok := c.Get(k1); ok {
		t.Error("user 1 entry should be invalidated")
	}
	if _, ok := c.Get(k2); ok {
		t.Error("user 1 second entry should be invalidated")
	}
	// 用户11的键以uid:11|开头，不能被用户1的失效误删
	if _, ok := c.Get(k3); !ok {
		t.Error("user 11 entry should survive invalidation of user 1")
	}
}

func TestCacheKeyDistinguishesOptions(t *testing.T) {
	base := models.RecommendationOptions{Limit: 50, SimilarityThreshold: 0.5}
	variants := []models.RecommendationOptions{
		{Limit: 20, SimilarityThreshold: 0.5},
		{Limit: 50, SimilarityThreshold: 0.7},
		{Limit: 50, SimilarityThreshold: 0.5, ContentType: "video"},
		{Limit: 50, SimilarityThreshold: 0.5, ExcludeSeen: true},
		{Limit: 50, SimilarityThreshold: 0.5, FreshDays: 7},
	}

	baseKey := CacheKey(1, base)
	for i, opts := range variants {
		if CacheKey(1, opts) == baseKey {
			t.Errorf("variant %d produced same cache key as base", i)
		}
	}
	if CacheKey(2, base) == baseKey {
		t.Error("different users must not share cache keys")
	}
}
