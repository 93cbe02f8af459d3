package models

import "time"

// 行为类型定义
const (
	ActionView    = "view"
	ActionLike    = "like"
	ActionCollect = "collect"
	ActionComment = "comment"
	ActionShare   = "share"
	ActionFollow  = "follow"
)

// BehaviorWeights 行为类型权重，未知行为不允许默认兜底
var BehaviorWeights = map[string]float64{
	ActionView:    0.1, // 浏览
	ActionLike:    0.8, // 点赞
	ActionCollect: 0.9, // 收藏
	ActionComment: 0.7, // 评论
	ActionShare:   0.6, // 分享
	ActionFollow:  0.6, // 关注
}

// BehaviorRecord 用户行为记录，创建后不可变
// Weight为0表示内容未通过有效性检查，仅作审计用途，不写入行为历史
type BehaviorRecord struct {
	ID        int64     `db:"id" json:"behavior_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ContentID int64     `db:"content_id" json:"content_id"`
	Action    string    `db:"action" json:"action"`
	Weight    float64   `db:"weight" json:"weight"`
	Source    string    `db:"source" json:"source"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Discarded 行为是否被丢弃（权重0哨兵）
func (b *BehaviorRecord) Discarded() bool {
	return b.Weight == 0
}

// BehaviorStats 用户行为统计
type BehaviorStats struct {
	TotalBehaviors       int            `json:"total_behaviors"`
	RecentBehaviors      int            `json:"recent_behaviors"`
	ActionDistribution   map[string]int `json:"action_distribution"`
	ActivityLevel        string         `json:"activity_level"`
	LastActivity         *time.Time     `json:"last_activity"`
	BehaviorsSinceUpdate int            `json:"behaviors_since_last_mbti_update"`
	DailyAverage         float64        `json:"daily_average"`
}
