package models

// APIResponse 通用API响应
type APIResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// BehaviorRecordRequest 记录用户行为请求体
type BehaviorRecordRequest struct {
	UserID    int64  `json:"user_id" example:"1001"`
	ContentID int64  `json:"content_id" example:"2001"`
	Action    string `json:"action" example:"like"` // view/like/collect/comment/share/follow
	Timestamp string `json:"timestamp,omitempty" example:"2026-08-01T12:00:00Z"`
	Source    string `json:"source,omitempty" example:"recommendation"`
}

// MBTIUpdateRequest 档案更新请求体
type MBTIUpdateRequest struct {
	ForceUpdate           bool `json:"force_update" example:"false"`
	AnalyzeLastNBehaviors int  `json:"analyze_last_n_behaviors" example:"50"`
}

// BatchContentRequest 批量内容请求体
type BatchContentRequest struct {
	ContentIDs  []int64 `json:"content_ids"`
	IncludeMBTI bool    `json:"include_mbti" example:"true"`
}

// ContentEvaluateRequest 内容MBTI评价请求体
type ContentEvaluateRequest struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// ProfileResponse 用户画像响应
type ProfileResponse struct {
	Code    int          `json:"code" example:"0"`
	Message string       `json:"message" example:"success"`
	Data    *UserProfile `json:"data,omitempty"`
}

// RecommendationResponse 推荐内容响应
type RecommendationResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    *RankedList `json:"data,omitempty"`
}
