package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
)

// SiliconFlow API请求和响应结构
type siliconFlowRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type siliconFlowResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// AnalyzerService 调用SiliconFlow LLM对内容做MBTI维度评价
type AnalyzerService struct {
	cfg    *config.Config
	client *http.Client
}

// NewAnalyzerService 创建内容分析服务
func NewAnalyzerService(cfg *config.Config) *AnalyzerService {
	timeout := time.Duration(cfg.SiliconFlow.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalyzerService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// mbtiPrompt 构建内容MBTI评价提示词，要求LLM只返回JSON
func mbtiPrompt(content string) string {
	return fmt.Sprintf(`请分析以下内容，评估其对MBTI八个维度人群的吸引力。

内容：
%s

请以JSON格式返回8个维度的概率值，每个值在0到1之间，
且E+I=1、S+N=1、T+F=1、J+P=1。只返回JSON，不要其他说明：
{"E": 0.5, "I": 0.5, "S": 0.5, "N": 0.5, "T": 0.5, "F": 0.5, "J": 0.5, "P": 0.5}`, content)
}

// EvaluateContent 对一段内容文本做MBTI评价
// 返回的概率已按对归一化；任何失败均返回错误，由调用方决定中性兜底
func (s *AnalyzerService) EvaluateContent(content string) (models.Probabilities, error) {
	if strings.TrimSpace(content) == "" {
		return models.Probabilities{}, fmt.Errorf("内容为空，无法评价")
	}

	raw, err := s.callLLM(mbtiPrompt(content))
	if err != nil {
		return models.Probabilities{}, err
	}

	probs, err := parseProbabilities(raw)
	if err != nil {
		return models.Probabilities{}, err
	}
	return probs.NormalizePairs(), nil
}

// BatchResult 批量评价的单条结果
type BatchResult struct {
	ContentID     int64
	Probabilities models.Probabilities
	Err           error
}

// EvaluateBatch 并发评价多条内容，并发数由配置限制
// 单条失败不影响其他条目，失败条目的Err非空
func (s *AnalyzerService) EvaluateBatch(contents map[int64]string) []BatchResult {
	maxConcurrency := s.cfg.SiliconFlow.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 3 // 默认值
	}
	semaphore := make(chan struct{}, maxConcurrency)

	results := make([]BatchResult, 0, len(contents))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for contentID, text := range contents {
		wg.Add(1)
		go func(id int64, text string) {
			defer wg.Done()

			// 使用信号量限制并发数
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			probs, err := s.EvaluateContent(text)
			mu.Lock()
			results = append(results, BatchResult{ContentID: id, Probabilities: probs, Err: err})
			mu.Unlock()
		}(contentID, text)
	}
	wg.Wait()

	return results
}

// callLLM 调用SiliconFlow chat completions接口并返回生成的文本
func (s *AnalyzerService) callLLM(prompt string) (string, error) {
	cfg := s.cfg

	// 记录提示词的前100个字符（避免日志过长）
	promptPreview := prompt
	if len(prompt) > 100 {
		promptPreview = prompt[:100] + "..."
	}
	logger.Debug("LLM请求提示词预览", "prompt_preview", promptPreview)

	apiKey := cfg.SiliconFlow.APIKey
	// 如果配置中的API Key是环境变量引用，则从环境变量中获取
	if strings.HasPrefix(apiKey, "${") && strings.HasSuffix(apiKey, "}") {
		envName := apiKey[2 : len(apiKey)-1]
		apiKey = os.Getenv(envName)
	}

	reqBody := siliconFlowRequest{
		Model: cfg.SiliconFlow.Model,
		Messages: []message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", cfg.SiliconFlow.BaseURL+"/v1/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	startTime := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("发送LLM请求失败", "error", err)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	logger.Debug("LLM响应状态",
		"status_code", resp.StatusCode,
		"response_size", len(body),
		"duration_ms", time.Since(startTime).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		responsePreview := string(body)
		if len(responsePreview) > 500 {
			responsePreview = responsePreview[:500] + "..."
		}
		logger.Error("LLM API请求失败", "status", resp.StatusCode, "response", responsePreview)
		return "", fmt.Errorf("API请求失败: %d - %s", resp.StatusCode, responsePreview)
	}

	var sfResp siliconFlowResponse
	if err := json.Unmarshal(body, &sfResp); err != nil {
		return "", err
	}
	if len(sfResp.Choices) == 0 {
		return "", fmt.Errorf("API响应中没有内容")
	}

	return sfResp.Choices[0].Message.Content, nil
}

// parseProbabilities 从LLM返回文本中解析8维概率
func parseProbabilities(text string) (models.Probabilities, error) {
	jsonContent := extractJSONFromText(text)

	var raw map[string]float64
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return models.Probabilities{}, fmt.Errorf("解析LLM返回的JSON失败: %w", err)
	}

	var probs models.Probabilities
	missing := 0
	for _, trait := range models.Traits {
		v, ok := raw[trait]
		if !ok {
			// 缺失维度按0.5中性处理
			missing++
			v = 0.5
		}
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		probs.Set(trait, v)
	}
	if missing == len(models.Traits) {
		return models.Probabilities{}, fmt.Errorf("LLM返回中缺少MBTI维度字段")
	}
	return probs, nil
}

// extractJSONFromText 从文本中提取JSON部分
func extractJSONFromText(text string) string {
	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return text[startIdx : endIdx+1]
	}

	// 如果找不到JSON部分，尝试查找```json和```之间的内容
	startMarker := "```json"
	endMarker := "```"
	startIdx = strings.Index(text, startMarker)
	if startIdx >= 0 {
		startIdx += len(startMarker)
		endIdx = strings.Index(text[startIdx:], endMarker)
		if endIdx > 0 {
			return strings.TrimSpace(text[startIdx : startIdx+endIdx])
		}
	}

	logger.Warn("无法从LLM响应中提取JSON部分")
	return text
}
