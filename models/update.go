package models

import "time"

// 档案更新触发方式
const (
	UpdateTriggerThreshold = "threshold"
	UpdateTriggerForced    = "forced"
)

// UpdateResult 档案更新结果
type UpdateResult struct {
	Updated           bool                   `json:"updated"`
	Reason            string                 `json:"reason,omitempty"`
	UserID            int64                  `json:"user_id"`
	OldMBTIType       string                 `json:"old_mbti_type,omitempty"`
	NewMBTIType       string                 `json:"new_mbti_type,omitempty"`
	BehaviorsAnalyzed int                    `json:"behaviors_analyzed"`
	ContentsAnalyzed  int                    `json:"contents_analyzed"`
	Changes           map[string]TraitChange `json:"probability_changes,omitempty"`
	UpdateTime        *time.Time             `json:"update_time,omitempty"`
	NewProfile        *UserProfile           `json:"new_profile,omitempty"`
}
