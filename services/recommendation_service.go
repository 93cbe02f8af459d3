package services

import (
	"math"
	"sort"
	"time"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
)

// RecommendationService 基于MBTI概率向量余弦相似度的推荐服务
type RecommendationService struct {
	cfg      *config.Config
	store    ProfileStore
	vectors  ContentVectorSource
	profiles *ProfileService
	cache    RecommendationCache
	logs     RecommendationLogStore
}

// NewRecommendationService 创建推荐服务，logs为nil时不落推荐日志
func NewRecommendationService(cfg *config.Config, store ProfileStore, vectors ContentVectorSource,
	profiles *ProfileService, cache RecommendationCache, logs RecommendationLogStore) *RecommendationService {
	return &RecommendationService{
		cfg:      cfg,
		store:    store,
		vectors:  vectors,
		profiles: profiles,
		cache:    cache,
		logs:     logs,
	}
}

// cosineSimilarity 计算两个等长向量的余弦相似度
// 任一向量模长为0时返回0（不是NaN）
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeOptions 填充默认值并收紧到配置上限
// SimilarityThreshold为负表示调用方未指定，使用配置默认值
func (s *RecommendationService) normalizeOptions(opts models.RecommendationOptions) models.RecommendationOptions {
	rc := s.cfg.Recommendation
	if opts.Limit <= 0 {
		opts.Limit = rc.DefaultLimit
	}
	if opts.Limit > rc.MaxLimit {
		opts.Limit = rc.MaxLimit
	}
	if opts.SimilarityThreshold < 0 {
		opts.SimilarityThreshold = rc.DefaultThreshold
	}
	if opts.FreshDays < 0 {
		opts.FreshDays = rc.DefaultFreshDays
	}
	return opts
}

// RecommendForUser 为用户生成个性化推荐列表
// 无档案用户使用中性兜底档案；候选为空或全部被过滤时返回
// reason=no_eligible_content的空列表，不报错
func (s *RecommendationService) RecommendForUser(userID int64, opts models.RecommendationOptions) (*models.RankedList, error) {
	opts = s.normalizeOptions(opts)

	key := CacheKey(userID, opts)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			result := *cached
			result.Metadata.CacheHit = true
			logger.Debug("推荐缓存命中", "user_id", userID, "key", key)
			return &result, nil
		}
	}

	// 档案读取失败降级为中性档案继续推荐，在metadata中标记
	profile, err := s.profiles.GetProfile(userID)
	if err != nil {
		logger.Warn("读取用户档案失败，使用中性兜底档案", "user_id", userID, "error", err)
		profile = models.NewNeutralProfile(userID)
		profile.NeutralFallback = true
	}
	userVec := profile.Probabilities.NormalizePairs().Vector()

	candidates, err := s.vectors.Candidates(s.cfg.Recommendation.CandidateLimit)
	if err != nil {
		return nil, err
	}

	var seen map[int64]bool
	if opts.ExcludeSeen {
		seen, err = s.store.SeenContentIDs(userID)
		if err != nil {
			return nil, err
		}
	}

	var freshCutoff time.Time
	if opts.FreshDays > 0 {
		freshCutoff = time.Now().UTC().AddDate(0, 0, -opts.FreshDays)
	}

	eligible := 0
	items := make([]models.RecommendationItem, 0, opts.Limit)
	for _, vec := range candidates {
		if vec == nil || !IsEligibleContent(&vec.Record) {
			continue
		}
		eligible++

		if opts.ContentType != "" && vec.Record.ContentType != opts.ContentType {
			continue
		}
		if seen != nil && seen[vec.ContentID] {
			continue
		}
		if !freshCutoff.IsZero() && vec.PublishTime != nil && vec.PublishTime.Before(freshCutoff) {
			continue
		}

		// 向量源不保证归一化，打分前按对归一化
		sim := cosineSimilarity(userVec, vec.Probabilities.NormalizePairs().Vector())
		if sim < opts.SimilarityThreshold {
			continue
		}

		items = append(items, models.RecommendationItem{
			ContentID:    vec.ContentID,
			Title:        vec.Record.Title,
			Similarity:   sim,
			QualityScore: vec.QualityScore,
			ContentType:  vec.Record.ContentType,
		})
	}

	rankItems(items)
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	list := &models.RankedList{
		UserID:          userID,
		UserMBTIType:    profile.MBTIType,
		Recommendations: items,
		Reason:          models.ReasonOK,
		Metadata: models.RankedListMetadata{
			TotalCandidates: len(candidates),
			EligibleCount:   eligible,
			FilteredCount:   eligible - len(items),
			AvgSimilarity:   avgSimilarity(items),
			FallbackProfile: profile.NeutralFallback,
			GeneratedAt:     time.Now().UTC(),
		},
	}
	if len(items) == 0 {
		list.Reason = models.ReasonNoEligibleContent
	}

	if s.cache != nil {
		s.cache.Put(key, list, time.Duration(s.cfg.Recommendation.CacheTTLSec)*time.Second)
	}
	if s.logs != nil {
		if err := s.logs.AppendRecommendationLog(userID, list, opts); err != nil {
			// 日志落库失败不影响推荐结果
			logger.Warn("推荐日志落库失败", "user_id", userID, "error", err)
		}
	}

	logger.Info("生成推荐列表",
		"user_id", userID, "mbti_type", profile.MBTIType, "fallback", profile.NeutralFallback,
		"candidates", len(candidates), "eligible", eligible, "returned", len(items))

	return list, nil
}

// RecommendSimilar 查询与锚点内容MBTI向量最相似的内容
// 与用户推荐不同：不应用相似度阈值，只按limit截断
func (s *RecommendationService) RecommendSimilar(contentID int64, limit int) (*models.RankedList, error) {
	rc := s.cfg.Recommendation
	if limit <= 0 {
		limit = rc.DefaultLimit
	}
	if limit > rc.MaxLimit {
		limit = rc.MaxLimit
	}

	found, _, err := s.vectors.GetVectors([]int64{contentID})
	if err != nil {
		return nil, err
	}
	anchor, ok := found[contentID]
	if !ok {
		return nil, ErrContentNotFound
	}
	anchorVec := anchor.Probabilities.NormalizePairs().Vector()

	candidates, err := s.vectors.Candidates(rc.CandidateLimit)
	if err != nil {
		return nil, err
	}

	eligible := 0
	items := make([]models.RecommendationItem, 0, limit)
	for _, vec := range candidates {
		if vec == nil || vec.ContentID == contentID {
			continue
		}
		if !IsEligibleContent(&vec.Record) {
			continue
		}
		eligible++

		sim := cosineSimilarity(anchorVec, vec.Probabilities.NormalizePairs().Vector())
		items = append(items, models.RecommendationItem{
			ContentID:    vec.ContentID,
			Title:        vec.Record.Title,
			Similarity:   sim,
			QualityScore: vec.QualityScore,
			ContentType:  vec.Record.ContentType,
			MBTIDistance: 1 - sim,
		})
	}

	rankItems(items)
	if len(items) > limit {
		items = items[:limit]
	}

	list := &models.RankedList{
		Recommendations: items,
		Reason:          models.ReasonOK,
		Metadata: models.RankedListMetadata{
			TotalCandidates: len(candidates),
			EligibleCount:   eligible,
			FilteredCount:   eligible - len(items),
			AvgSimilarity:   avgSimilarity(items),
			GeneratedAt:     time.Now().UTC(),
		},
	}
	if len(items) == 0 {
		list.Reason = models.ReasonNoEligibleContent
	}
	return list, nil
}

// rankItems 确定性排序：相似度降序 > 质量分降序 > 内容ID升序，rank从1开始
func rankItems(items []models.RecommendationItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Similarity != items[j].Similarity {
			return items[i].Similarity > items[j].Similarity
		}
		if items[i].QualityScore != items[j].QualityScore {
			return items[i].QualityScore > items[j].QualityScore
		}
		return items[i].ContentID < items[j].ContentID
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

func avgSimilarity(items []models.RecommendationItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Similarity
	}
	return sum / float64(len(items))
}
