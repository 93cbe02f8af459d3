package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"mbti_recommender/models"
)

// cacheEntry 带过期时间的缓存条目
type cacheEntry struct {
	list      *models.RankedList
	expiresAt time.Time
}

// MemoryCache 线程安全的推荐结果内存缓存，条目带TTL
// 档案更新后必须调用InvalidateUser，TTL内的其他陈旧是可接受的
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache 创建内存缓存并启动后台清理
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{entries: make(map[string]cacheEntry)}
	go c.cleanupLoop()
	return c
}

// CacheKey 由用户ID和选项生成规范化缓存键
func CacheKey(userID int64, opts models.RecommendationOptions) string {
	return fmt.Sprintf("uid:%d|limit:%d|type:%s|thr:%.2f|seen:%t|fresh:%d",
		userID, opts.Limit, opts.ContentType, opts.SimilarityThreshold,
		opts.ExcludeSeen, opts.FreshDays)
}

func (c *MemoryCache) Get(key string) (*models.RankedList, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.list, true
}

func (c *MemoryCache) Put(key string, list *models.RankedList, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{list: list, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// InvalidateUser 清除指定用户的全部缓存条目
func (c *MemoryCache) InvalidateUser(userID int64) {
	prefix := fmt.Sprintf("uid:%d|", userID)
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// cleanupLoop 定期清理过期条目
func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
