package models

import "time"

// UserProfile 用户MBTI档案
// 首次记录行为时以中性先验惰性创建，只由ProfileService更新
type UserProfile struct {
	UserID        int64         `db:"user_id" json:"user_id"`
	Probabilities Probabilities `json:"probabilities"`
	MBTIType      string        `db:"mbti_type" json:"mbti_type"`

	Confidence ConfidenceScores `json:"confidence_scores"`

	// 统计信息
	AnalyzedCount        int `db:"total_behaviors_analyzed" json:"total_behaviors_analyzed"`
	BehaviorsSinceUpdate int `db:"behaviors_since_last_update" json:"behaviors_since_last_update"`

	// 乐观并发版本号，每次更新自增
	Version int64 `db:"version" json:"-"`

	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// NeutralFallback 标记该档案是降级的中性先验（档案读取失败或尚未建立）
	NeutralFallback bool `json:"neutral_fallback,omitempty"`
}

// NewNeutralProfile 创建中性先验档案
func NewNeutralProfile(userID int64) *UserProfile {
	now := time.Now().UTC()
	probs := NeutralProbabilities()
	return &UserProfile{
		UserID:        userID,
		Probabilities: probs,
		MBTIType:      probs.DeriveType(),
		Confidence:    probs.ConfidenceScores(),
		LastUpdated:   now,
		CreatedAt:     now,
	}
}

// Recompute 根据当前概率重新推导类型和置信度
func (p *UserProfile) Recompute() {
	p.Probabilities = p.Probabilities.NormalizePairs()
	p.MBTIType = p.Probabilities.DeriveType()
	p.Confidence = p.Probabilities.ConfidenceScores()
}

// ProfileUpdateAudit 档案更新审计记录
type ProfileUpdateAudit struct {
	UserID            int64                  `json:"user_id"`
	Trigger           string                 `json:"trigger"` // threshold / forced
	BehaviorsAnalyzed int                    `json:"behaviors_analyzed"`
	OldType           string                 `json:"old_mbti_type"`
	NewType           string                 `json:"new_mbti_type"`
	Changes           map[string]TraitChange `json:"probability_changes"`
	CreatedAt         time.Time              `json:"created_at"`
}

// TraitChange 单个字母的概率变化
type TraitChange struct {
	Old    float64 `json:"old"`
	New    float64 `json:"new"`
	Change float64 `json:"change"`
}
