package utils

import (
	"regexp"
	"strings"
	"time"
)

// 内容清洗的最大保留长度（按rune计）
const maxContentRunes = 2000

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanContent 清洗内容文本：去HTML标签、去URL、压缩空白、截断
// 送入LLM评价前统一经过该函数
func CleanContent(text string) string {
	if text == "" {
		return ""
	}

	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = FilterSpecialSymbols(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > maxContentRunes {
		text = string(runes[:maxContentRunes])
	}
	return text
}

// FilterSpecialSymbols 过滤文本中的特殊符号，只保留常见标点符号和正常内容
func FilterSpecialSymbols(text string) string {
	// 定义要保留的常见标点符号
	commonPunctuation := map[rune]bool{
		'，': true, '。': true, '！': true, '？': true, '：': true, '；': true,
		'、': true, '（': true, '）': true,
		'【': true, '】': true, '《': true, '》': true, '—': true,
		',': true, '.': true, '!': true, '?': true, ':': true, ';': true,
		'"': true, '\'': true, '(': true, ')': true, '[': true, ']': true,
		'{': true, '}': true, '<': true, '>': true, '-': true, '_': true,
		'+': true, '=': true, '/': true, '\\': true, '|': true, ' ': true,
		'\n': true, '\r': true, '\t': true,
	}

	var result strings.Builder
	for _, r := range []rune(text) {
		// 保留中文字符、英文字母、数字和常见标点符号
		if (r >= '一' && r <= '龥') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') ||
			commonPunctuation[r] {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// 上游createTime字段的常见格式
var publishTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParsePublishTime 解析上游内容的发布时间字符串，解析失败返回nil
func ParsePublishTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publishTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
