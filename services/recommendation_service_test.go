package services

import (
	"fmt"
	"math"
	"testing"

	"mbti_recommender/config"
	"mbti_recommender/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Behavior.UpdateThreshold = 50
	cfg.Behavior.MinBehaviors = 10
	cfg.Behavior.MaxWindow = 200
	cfg.Behavior.HistoryWeight = 0.7
	cfg.Behavior.NewAnalysisWeight = 0.3
	cfg.Recommendation.DefaultLimit = 50
	cfg.Recommendation.MaxLimit = 100
	cfg.Recommendation.DefaultThreshold = 0.5
	cfg.Recommendation.DefaultFreshDays = 30
	cfg.Recommendation.CacheTTLSec = 1800
	cfg.Recommendation.CandidateLimit = 1000
	return cfg
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0, 1, 0, 1, 0, 1}
	if got := cosineSimilarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical vectors: similarity = %v, want 1.0", got)
	}

	b := []float64{0, 1, 1, 0, 1, 0, 1, 0}
	if got := cosineSimilarity(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: similarity = %v, want 0", got)
	}

	// 对称性
	c := []float64{0.6, 0.4, 0.3, 0.7, 0.5, 0.5, 0.2, 0.8}
	if s1, s2 := cosineSimilarity(a, c), cosineSimilarity(c, a); math.Abs(s1-s2) > 1e-12 {
		t.Errorf("similarity not symmetric: %v vs %v", s1, s2)
	}

	// 零向量返回0而不是NaN
	zero := make([]float64, 8)
	if got := cosineSimilarity(a, zero); got != 0 {
		t.Errorf("zero vector: similarity = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths: similarity = %v, want 0", got)
	}
}

func TestRankItemsOrdering(t *testing.T) {
	items := []models.RecommendationItem{
		{ContentID: 3, Similarity: 0.8, QualityScore: 0.5},
		{ContentID: 1, Similarity: 0.9, QualityScore: 0.1},
		{ContentID: 5, Similarity: 0.8, QualityScore: 0.9},
		{ContentID: 2, Similarity: 0.8, QualityScore: 0.5},
	}
	rankItems(items)

	wantOrder := []int64{1, 5, 2, 3}
	for i, want := range wantOrder {
		if items[i].ContentID != want {
			t.Errorf("position %d: content_id = %d, want %d", i, items[i].ContentID, want)
		}
		if items[i].Rank != i+1 {
			t.Errorf("position %d: rank = %d, want %d", i, items[i].Rank, i+1)
		}
	}
}

func newTestRecommender(store *stubStore, vectors *stubVectors) *RecommendationService {
	cfg := testConfig()
	profiles := NewProfileService(cfg, store, vectors, nil)
	return NewRecommendationService(cfg, store, vectors, profiles, nil, nil)
}

func TestRecommendForUserRanksBySimilarity(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	// 用户是强E强N强F强P
	profile := models.NewNeutralProfile(1)
	profile.Probabilities = models.Probabilities{E: 0.9, I: 0.1, S: 0.1, N: 0.9, T: 0.1, F: 0.9, J: 0.1, P: 0.9}
	profile.Recompute()
	profile.Version = 1
	store.profiles[1] = profile

	// 内容101与用户高度相似，102中性，103相反
	vectors.add(vectorWith(101, models.Probabilities{E: 0.9, I: 0.1, S: 0.1, N: 0.9, T: 0.1, F: 0.9, J: 0.1, P: 0.9}, 0.5))
	vectors.add(vectorWith(102, models.NeutralProbabilities(), 0.5))
	vectors.add(vectorWith(103, models.Probabilities{E: 0.1, I: 0.9, S: 0.9, N: 0.1, T: 0.9, F: 0.1, J: 0.9, P: 0.1}, 0.5))

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: -1,
	})
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}

	if len(list.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	if list.Recommendations[0].ContentID != 101 {
		t.Errorf("top recommendation = %d, want 101", list.Recommendations[0].ContentID)
	}
	for i := 1; i < len(list.Recommendations); i++ {
		if list.Recommendations[i].Similarity > list.Recommendations[i-1].Similarity {
			t.Error("recommendations not sorted by similarity desc")
		}
	}
	if list.UserMBTIType != "ENFP" {
		t.Errorf("UserMBTIType = %q, want ENFP", list.UserMBTIType)
	}
}

func TestRecommendForUserThresholdFiltersDissimilar(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	profile := models.NewNeutralProfile(1)
	profile.Probabilities = models.Probabilities{E: 1, I: 0, S: 0, N: 1, T: 0, F: 1, J: 0, P: 1}
	profile.Recompute()
	profile.Version = 1
	store.profiles[1] = profile

	vectors.add(vectorWith(201, models.Probabilities{E: 1, I: 0, S: 0, N: 1, T: 0, F: 1, J: 0, P: 1}, 0.5))
	vectors.add(vectorWith(202, models.Probabilities{E: 0, I: 1, S: 1, N: 0, T: 1, F: 0, J: 1, P: 0}, 0.5))

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: 0.9,
	})
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}

	for _, item := range list.Recommendations {
		if item.ContentID == 202 {
			t.Error("orthogonal content should be filtered by threshold")
		}
		if item.Similarity < 0.9 {
			t.Errorf("item %d similarity %v below threshold", item.ContentID, item.Similarity)
		}
	}
}

func TestRecommendForUserLimitAndExcludeSeen(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	store.profiles[1] = func() *models.UserProfile {
		p := models.NewNeutralProfile(1)
		p.Version = 1
		return p
	}()

	for id := int64(1); id <= 10; id++ {
		vectors.add(vectorWith(id, models.NeutralProbabilities(), float64(id)/10))
	}
	// 用户已经看过内容1和2
	store.behaviors[1] = []models.BehaviorRecord{
		{UserID: 1, ContentID: 1, Action: models.ActionView, Weight: 0.1},
		{UserID: 1, ContentID: 2, Action: models.ActionLike, Weight: 0.8},
	}

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		Limit:               3,
		SimilarityThreshold: -1,
		ExcludeSeen:         true,
	})
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}

	if len(list.Recommendations) != 3 {
		t.Errorf("got %d recommendations, want 3", len(list.Recommendations))
	}
	for _, item := range list.Recommendations {
		if item.ContentID == 1 || item.ContentID == 2 {
			t.Errorf("seen content %d should be excluded", item.ContentID)
		}
	}
}

func TestRecommendForUserEmptyCandidates(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	// 所有候选都不合格
	bad := vectorWith(301, models.NeutralProbabilities(), 0.5)
	bad.Record.State = "OffShelf"
	vectors.add(bad)

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: -1,
	})
	if err != nil {
		t.Fatalf("empty candidates must not be an error, got: %v", err)
	}
	if len(list.Recommendations) != 0 {
		t.Errorf("got %d recommendations, want 0", len(list.Recommendations))
	}
	if list.Reason != models.ReasonNoEligibleContent {
		t.Errorf("reason = %q, want %q", list.Reason, models.ReasonNoEligibleContent)
	}
	// 无档案用户走中性兜底
	if !list.Metadata.FallbackProfile {
		t.Error("expected fallback_profile metadata for absent profile")
	}
}

func TestRecommendForUserProfileReadFailureFallsBack(t *testing.T) {
	store := newStubStore()
	store.getProfileErr = fmt.Errorf("connection reset")
	vectors := newStubVectors()
	vectors.add(vectorWith(601, models.NeutralProbabilities(), 0.5))

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: -1,
	})
	if err != nil {
		t.Fatalf("profile read failure must not fail the request, got: %v", err)
	}
	if !list.Metadata.FallbackProfile {
		t.Error("expected fallback_profile metadata after profile read failure")
	}
	if len(list.Recommendations) != 1 {
		t.Errorf("got %d recommendations, want 1", len(list.Recommendations))
	}
}

func TestRecommendForUserUsesCache(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()
	vectors.add(vectorWith(401, models.NeutralProbabilities(), 0.5))

	cfg := testConfig()
	cache := newRecordingCache()
	profiles := NewProfileService(cfg, store, vectors, cache)
	svc := NewRecommendationService(cfg, store, vectors, profiles, cache, nil)

	opts := models.RecommendationOptions{SimilarityThreshold: -1}
	first, err := svc.RecommendForUser(1, opts)
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if first.Metadata.CacheHit {
		t.Error("first call must not be a cache hit")
	}

	second, err := svc.RecommendForUser(1, opts)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second call should hit the cache")
	}
}

func TestRecommendSimilar(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	anchor := vectorWith(500, models.Probabilities{E: 0.9, I: 0.1, S: 0.1, N: 0.9, T: 0.1, F: 0.9, J: 0.1, P: 0.9}, 0.5)
	similar := vectorWith(501, models.Probabilities{E: 0.8, I: 0.2, S: 0.2, N: 0.8, T: 0.2, F: 0.8, J: 0.2, P: 0.8}, 0.5)
	opposite := vectorWith(502, models.Probabilities{E: 0.1, I: 0.9, S: 0.9, N: 0.1, T: 0.9, F: 0.1, J: 0.9, P: 0.1}, 0.5)
	vectors.add(anchor)
	vectors.add(similar)
	vectors.add(opposite)

	list, err := newTestRecommender(store, vectors).RecommendSimilar(500, 10)
	if err != nil {
		t.Fatalf("RecommendSimilar() error: %v", err)
	}

	// 锚点自身被排除，相反内容不被阈值过滤（相似查询无阈值）
	if len(list.Recommendations) != 2 {
		t.Fatalf("got %d items, want 2", len(list.Recommendations))
	}
	if list.Recommendations[0].ContentID != 501 {
		t.Errorf("most similar = %d, want 501", list.Recommendations[0].ContentID)
	}
	for _, item := range list.Recommendations {
		if item.ContentID == 500 {
			t.Error("anchor content must be excluded from results")
		}
		wantDistance := 1 - item.Similarity
		if math.Abs(item.MBTIDistance-wantDistance) > 1e-9 {
			t.Errorf("item %d: mbti_distance = %v, want %v", item.ContentID, item.MBTIDistance, wantDistance)
		}
	}
}

func TestRecommendSimilarUnknownContent(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	_, err := newTestRecommender(store, vectors).RecommendSimilar(999, 10)
	if err == nil {
		t.Fatal("expected error for unknown anchor content")
	}
}

func TestRecommendForUserNormalizesCandidateVectors(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	profile := models.NewNeutralProfile(1)
	profile.Probabilities = models.Probabilities{E: 1, I: 0, S: 0, N: 1, T: 0, F: 1, J: 0, P: 1}
	profile.Recompute()
	profile.Version = 1
	store.profiles[1] = profile

	// 未归一化的外部向量，按对归一化后与用户档案几乎一致
	vectors.add(vectorWith(301, models.Probabilities{E: 50, I: 0, S: 0, N: 0.1, T: 0, F: 0.1, J: 0, P: 0.1}, 0.5))

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: -1,
	})
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(list.Recommendations) != 1 {
		t.Fatalf("len(recommendations) = %d, want 1", len(list.Recommendations))
	}
	if sim := list.Recommendations[0].Similarity; sim < 0.99 {
		t.Errorf("similarity = %v, want > 0.99 after pair normalization", sim)
	}
}

func TestRecommendSimilarNormalizesAnchorVector(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()

	// 锚点向量未归一化
	vectors.add(vectorWith(401, models.Probabilities{E: 50, I: 0, S: 0, N: 0.1, T: 0, F: 0.1, J: 0, P: 0.1}, 0.5))
	vectors.add(vectorWith(402, models.Probabilities{E: 1, I: 0, S: 0, N: 1, T: 0, F: 1, J: 0, P: 1}, 0.5))

	list, err := newTestRecommender(store, vectors).RecommendSimilar(401, 10)
	if err != nil {
		t.Fatalf("RecommendSimilar() error: %v", err)
	}
	if len(list.Recommendations) != 1 {
		t.Fatalf("len(recommendations) = %d, want 1", len(list.Recommendations))
	}
	item := list.Recommendations[0]
	if item.ContentID != 402 {
		t.Errorf("content_id = %d, want 402", item.ContentID)
	}
	if item.Similarity < 0.99 {
		t.Errorf("similarity = %v, want > 0.99 after pair normalization", item.Similarity)
	}
	if item.MBTIDistance > 0.01 {
		t.Errorf("mbti_distance = %v, want < 0.01", item.MBTIDistance)
	}
}

func TestRecommendForUserLazyCreatedProfileNotFlaggedFallback(t *testing.T) {
	store := newStubStore()
	vectors := newStubVectors()
	vectors.add(vectorWith(501, models.NeutralProbabilities(), 0.5))

	// 记录行为触发惰性建档，但从未跑过档案更新
	if _, err := store.IncrementBehaviorCount(1); err != nil {
		t.Fatalf("IncrementBehaviorCount() error: %v", err)
	}

	list, err := newTestRecommender(store, vectors).RecommendForUser(1, models.RecommendationOptions{
		SimilarityThreshold: -1,
	})
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if list.Metadata.FallbackProfile {
		t.Error("lazily created profile reported as fallback")
	}
}
