package services

import (
	"strings"

	"mbti_recommender/models"
)

// IsEligibleContent 判定内容是否适合推荐和行为记录
// 纯函数，总是有结果，缺失字段按不满足处理
// 行为记录路径和推荐路径必须使用同一判定，两边不一致是正确性bug
func IsEligibleContent(c *models.ContentRecord) bool {
	if c == nil {
		return false
	}

	// 必须有标题
	if strings.TrimSpace(c.Title) == "" {
		return false
	}

	// 必须有封面图片
	if c.CoverImage == "" && c.CoverURL == "" {
		return false
	}

	// 必须处于上架状态且审核通过
	if c.State != models.ContentStateOnShelf {
		return false
	}
	if c.AuditState != models.AuditStatePass {
		return false
	}

	// 必须有实际内容：文字内容、图片列表或封面
	hasContent := c.Content != "" ||
		len(c.Images) > 0 ||
		c.CoverImage != "" || c.CoverURL != ""

	return hasContent
}
