package models

import "time"

// 内容生命周期状态（上游平台定义）
const (
	ContentStateOnShelf = "OnShelf"
	AuditStatePass      = "Pass"
)

// ContentRecord 上游内容平台返回的原始内容记录
// 所有字段均为可选。有效性由services.IsEligibleContent统一判定，
// 禁止在代码各处散落ad-hoc的字段检查
type ContentRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	CoverImage  string   `json:"coverImage"`
	CoverURL    string   `json:"coverUrl"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	State       string   `json:"state"`
	AuditState  string   `json:"auditState"`
	Author      string   `json:"userName"`
	ContentType string   `json:"mediaContentType"`
	CreateTime  string   `json:"createTime"`
	SiteID      int      `json:"siteId"`
}

// ContentVector 内容的MBTI概率向量及其原始内容快照
// 分析器输出不保证每对归一化，入库和使用前先做归一化
type ContentVector struct {
	ContentID     int64         `json:"content_id"`
	Probabilities Probabilities `json:"probabilities"`
	QualityScore  float64       `json:"quality_score"`

	// 原始内容字段快照，有效性过滤依据
	Record ContentRecord `json:"record"`

	PublishTime *time.Time `json:"publish_time,omitempty"`

	// Neutral 标记该向量是分析器失败后的中性兜底
	Neutral bool `json:"neutral,omitempty"`

	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// NeutralContentVector 分析器不可用时的中性兜底向量
func NeutralContentVector(contentID int64) *ContentVector {
	return &ContentVector{
		ContentID:     contentID,
		Probabilities: NeutralProbabilities(),
		Neutral:       true,
		ModelVersion:  "neutral",
		CreatedAt:     time.Now().UTC(),
	}
}
