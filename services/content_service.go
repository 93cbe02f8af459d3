package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
)

// 上游内容类型
var contentTypes = []string{"article", "video", "product"}

// sohuResponse 上游平台统一响应包装
type sohuResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// sohuListData 列表接口响应体，不同接口的列表字段名不统一
type sohuListData struct {
	Total   int                    `json:"total"`
	List    []models.ContentRecord `json:"list"`
	Records []models.ContentRecord `json:"records"`
}

func (d *sohuListData) items() []models.ContentRecord {
	if len(d.List) > 0 {
		return d.List
	}
	return d.Records
}

// SohuContentService 搜狐内容平台客户端，实现ContentSource
// 所有请求经过熔断器，上游持续失败时快速失败而不是拖垮调用方
type SohuContentService struct {
	cfg     *config.Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

// NewSohuContentService 创建上游内容客户端
func NewSohuContentService(cfg *config.Config) *SohuContentService {
	timeout := time.Duration(cfg.SohuAPI.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "sohu-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("上游熔断器状态变化", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &SohuContentService{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// ensureAuthenticated 检查Token是否有效，过期则重新登录
func (s *SohuContentService) ensureAuthenticated() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiresAt) {
		return nil
	}
	return s.login()
}

// login 登录获取Token，Token按24小时有效处理
func (s *SohuContentService) login() error {
	loginData := map[string]string{
		"phone":    s.cfg.SohuAPI.LoginPhone,
		"password": s.cfg.SohuAPI.LoginPassword,
	}
	body, _ := json.Marshal(loginData)

	resp, err := s.doRequest("POST", "/api/user/login", body, "")
	if err != nil {
		return fmt.Errorf("登录请求失败: %w", err)
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		return fmt.Errorf("登录响应中没有token: %s", string(resp.Data))
	}

	s.token = data.Token
	s.tokenExpiresAt = time.Now().Add(24 * time.Hour)
	logger.Info("上游平台登录成功")
	return nil
}

// doRequest 发送一次HTTP请求，经过熔断器
func (s *SohuContentService) doRequest(method, endpoint string, body []byte, token string) (*sohuResponse, error) {
	url := s.cfg.SohuAPI.BaseURL + endpoint

	raw, err := s.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewBuffer(body)
		}
		req, err := http.NewRequest(method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("上游返回HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}
		return respBody, nil
	})
	if err != nil {
		return nil, err
	}

	var envelope sohuResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("解析上游响应失败: %w", err)
	}
	if envelope.Code != 200 {
		return nil, fmt.Errorf("上游业务错误: code=%d msg=%s", envelope.Code, envelope.Msg)
	}
	return &envelope, nil
}

// authorizedGet 带Token的GET请求，401时重新登录重试一次
func (s *SohuContentService) authorizedGet(endpoint string) (*sohuResponse, error) {
	if err := s.ensureAuthenticated(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	return s.doRequest("GET", endpoint, nil, token)
}

// GetContentByID 根据ID获取内容详情
// contentType为空时依次尝试各类型接口
func (s *SohuContentService) GetContentByID(contentID int64, contentType string) (*models.ContentRecord, error) {
	tryTypes := contentTypes
	if contentType != "" {
		tryTypes = []string{contentType}
	}

	var lastErr error
	for _, ct := range tryTypes {
		resp, err := s.authorizedGet(fmt.Sprintf("/api/%s/%d", ct, contentID))
		if err != nil {
			lastErr = err
			continue
		}

		var record models.ContentRecord
		if err := json.Unmarshal(resp.Data, &record); err != nil {
			lastErr = err
			continue
		}
		if record.ID == 0 {
			record.ID = contentID
		}
		if record.ContentType == "" {
			record.ContentType = ct
		}
		return &record, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrContentNotFound
}

// GetContentsBatch 批量获取内容详情，单条失败不中断整体
func (s *SohuContentService) GetContentsBatch(contentIDs []int64) ([]models.ContentRecord, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	records := make([]models.ContentRecord, 0, len(contentIDs))
	for _, id := range contentIDs {
		record, err := s.GetContentByID(id, "")
		if err != nil {
			logger.Warn("批量获取内容失败", "content_id", id, "error", err)
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// ListOnShelf 分页拉取各类型内容列表
func (s *SohuContentService) ListOnShelf(page, pageSize int) ([]models.ContentRecord, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.SohuAPI.PageSize
	}

	var all []models.ContentRecord
	var lastErr error
	for _, ct := range contentTypes {
		endpoint := fmt.Sprintf("/api/%s/list?page=%d&size=%d&siteId=%d",
			ct, page, pageSize, s.cfg.SohuAPI.SiteID)
		resp, err := s.authorizedGet(endpoint)
		if err != nil {
			logger.Warn("拉取内容列表失败", "content_type", ct, "page", page, "error", err)
			lastErr = err
			continue
		}

		var data sohuListData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			lastErr = err
			continue
		}
		for _, record := range data.items() {
			if record.ContentType == "" {
				record.ContentType = ct
			}
			all = append(all, record)
		}
	}

	if len(all) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
	}
	return all, nil
}

// truncate 截断字符串用于日志
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
