package services

import (
	"fmt"

	"mbti_recommender/models"
)

// WeightFor 返回行为类型对应的权重
// 未知行为类型直接报错，不允许静默使用默认权重
func WeightFor(action string) (float64, error) {
	w, ok := models.BehaviorWeights[action]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAction, action)
	}
	return w, nil
}

// ShouldRecord 行为是否应写入行为历史，等价于内容有效性判定
func ShouldRecord(c *models.ContentRecord) bool {
	return IsEligibleContent(c)
}
