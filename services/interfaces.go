package services

import (
	"time"

	"mbti_recommender/models"
)

// ProfileStore 用户档案与行为历史存储
// 引擎只依赖该抽象，MySQL实现在repository包
type ProfileStore interface {
	// GetProfile 获取用户档案，不存在时返回(nil, nil)
	GetProfile(userID int64) (*models.UserProfile, error)

	// SaveProfile 带版本检查的档案保存，版本不匹配时返回ErrConcurrentUpdateConflict
	SaveProfile(p *models.UserProfile, expectedVersion int64) error

	// AppendBehavior 追加一条行为记录
	AppendBehavior(b *models.BehaviorRecord) error

	// IncrementBehaviorCount 原子自增behaviors_since_last_update并返回新值
	// 档案不存在时以中性先验惰性创建
	IncrementBehaviorCount(userID int64) (int, error)

	// RecentBehaviors 按时间倒序返回用户最近n条有效行为
	RecentBehaviors(userID int64, n int) ([]models.BehaviorRecord, error)

	// BehaviorHistory 分页查询行为历史，action为空表示不过滤
	BehaviorHistory(userID int64, action string, limit, offset int) ([]models.BehaviorRecord, int, error)

	// SeenContentIDs 用户行为历史中出现过的内容ID集合
	SeenContentIDs(userID int64) (map[int64]bool, error)

	// BehaviorStats 用户行为统计
	BehaviorStats(userID int64, days int) (*models.BehaviorStats, error)

	// AppendUpdateAudit 追加档案更新审计记录
	AppendUpdateAudit(a *models.ProfileUpdateAudit) error
}

// ContentVectorSource 内容MBTI向量来源
type ContentVectorSource interface {
	// GetVectors 按ID批量获取向量，返回找到的映射和未找到的ID列表
	GetVectors(contentIDs []int64) (map[int64]*models.ContentVector, []int64, error)

	// Candidates 返回推荐候选池（按入库时间倒序，最多limit条）
	Candidates(limit int) ([]*models.ContentVector, error)

	// SaveVector 保存内容向量（概率入库前归一化）
	SaveVector(v *models.ContentVector) error
}

// RecommendationCache 推荐结果短TTL缓存
type RecommendationCache interface {
	Get(key string) (*models.RankedList, bool)
	Put(key string, list *models.RankedList, ttl time.Duration)

	// InvalidateUser 档案更新后清除该用户的全部缓存条目
	InvalidateUser(userID int64)
}

// ContentAnalyzer 内容MBTI分析器（LLM），失败时返回错误由调用方兜底
type ContentAnalyzer interface {
	EvaluateContent(content string) (models.Probabilities, error)
}

// ContentSource 上游内容平台
type ContentSource interface {
	GetContentByID(contentID int64, contentType string) (*models.ContentRecord, error)
	GetContentsBatch(contentIDs []int64) ([]models.ContentRecord, error)
	ListOnShelf(page, pageSize int) ([]models.ContentRecord, error)
}

// RecommendationLogStore 推荐日志落库，nil表示不记录
type RecommendationLogStore interface {
	AppendRecommendationLog(userID int64, list *models.RankedList, opts models.RecommendationOptions) error
}
