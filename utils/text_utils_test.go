package utils

import (
	"strings"
	"testing"
	"time"
)

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空字符串", "", ""},
		{"去除HTML标签", "<p>你好</p><br/>世界", "你好 世界"},
		{"去除URL", "详情见 https://example.com/a?b=1 这里", "详情见 这里"},
		{"压缩空白", "多个   空格\n\n和换行", "多个 空格 和换行"},
		{"过滤特殊符号", "正常内容★☆♛保留标点，。！", "正常内容保留标点，。！"},
		{"普通文本原样保留", "今天天气不错", "今天天气不错"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanContent(tt.input); got != tt.want {
				t.Errorf("CleanContent(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanContentTruncatesLongText(t *testing.T) {
	long := strings.Repeat("长", 3000)
	got := CleanContent(long)
	if n := len([]rune(got)); n != 2000 {
		t.Errorf("cleaned length = %d runes, want 2000", n)
	}
}

func TestParsePublishTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-03-15 10:30:00", "2025-03-15T10:30:00Z"},
		{"2025-03-15T10:30:00Z", "2025-03-15T10:30:00Z"},
		{"2025-03-15", "2025-03-15T00:00:00Z"},
		{"  2025-03-15  ", "2025-03-15T00:00:00Z"},
	}
	for _, tt := range tests {
		got := ParsePublishTime(tt.input)
		if got == nil {
			t.Errorf("ParsePublishTime(%q) = nil, want %s", tt.input, tt.want)
			continue
		}
		if got.UTC().Format(time.RFC3339) != tt.want {
			t.Errorf("ParsePublishTime(%q) = %s, want %s", tt.input, got.UTC().Format(time.RFC3339), tt.want)
		}
	}
}

func TestParsePublishTimeInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "昨天", "2025/03/15", "15-03-2025"} {
		if got := ParsePublishTime(input); got != nil {
			t.Errorf("ParsePublishTime(%q) = %v, want nil", input, got)
		}
	}
}
