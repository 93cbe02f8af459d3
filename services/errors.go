package services

import "errors"

// 引擎错误分类
// InvalidContent不是错误：未通过有效性检查的内容只是被过滤掉的状态
var (
	// ErrUnsupportedAction 未知的行为类型，在边界处拒绝，不允许静默兜底
	ErrUnsupportedAction = errors.New("unsupported behavior action")

	// ErrInsufficientData 行为数量不足以进行档案分析，可稍后重试
	ErrInsufficientData = errors.New("insufficient behaviors for analysis")

	// ErrConcurrentUpdateConflict 档案写入竞争，内部有限重试后仍冲突
	ErrConcurrentUpdateConflict = errors.New("concurrent profile update conflict")

	// ErrUpstreamUnavailable 上游服务（内容平台/分析器/档案存储）不可用
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrContentNotFound 内容向量库和上游均查不到该内容
	ErrContentNotFound = errors.New("content not found")
)
