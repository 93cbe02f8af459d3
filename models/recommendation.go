package models

import "time"

// 推荐结果原因码，空结果是正常结果而不是错误
const (
	ReasonOK                = "ok"
	ReasonNoEligibleContent = "no_eligible_content"
)

// RecommendationItem 单条推荐结果
type RecommendationItem struct {
	ContentID    int64   `json:"content_id"`
	Title        string  `json:"title,omitempty"`
	Similarity   float64 `json:"similarity_score"`
	QualityScore float64 `json:"quality_score,omitempty"`
	Rank         int     `json:"rank"`
	ContentType  string  `json:"content_type,omitempty"`

	// MBTIDistance 仅相似内容查询填充，1 - similarity
	MBTIDistance float64 `json:"mbti_distance,omitempty"`
}

// RankedList 排序后的推荐列表
type RankedList struct {
	UserID          int64                `json:"user_id,omitempty"`
	UserMBTIType    string               `json:"user_mbti_type,omitempty"`
	Recommendations []RecommendationItem `json:"recommendations"`
	Reason          string               `json:"reason"`
	Metadata        RankedListMetadata   `json:"metadata"`
}

// RankedListMetadata 推荐结果统计信息
type RankedListMetadata struct {
	TotalCandidates int       `json:"total_candidates"`
	EligibleCount   int       `json:"eligible_count"`
	FilteredCount   int       `json:"filtered_count"`
	AvgSimilarity   float64   `json:"avg_similarity"`
	FallbackProfile bool      `json:"fallback_profile,omitempty"`
	CacheHit        bool      `json:"cache_hit"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// RecommendationOptions 推荐选项
type RecommendationOptions struct {
	Limit               int     `json:"limit"`
	ContentType         string  `json:"content_type,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ExcludeSeen         bool    `json:"exclude_viewed"`
	FreshDays           int     `json:"fresh_days"`
}
