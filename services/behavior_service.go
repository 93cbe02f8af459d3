package services

import (
	"fmt"
	"time"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
	"mbti_recommender/utils"
)

// RecordResult 行为记录结果
type RecordResult struct {
	Behavior        *models.BehaviorRecord `json:"behavior"`
	Persisted       bool                   `json:"persisted"`
	CurrentCount    int                    `json:"current_behavior_count"`
	UpdateTriggered bool                   `json:"mbti_update_triggered"`
	NextThreshold   int                    `json:"next_update_threshold"`
}

// BehaviorService 用户行为记录服务
type BehaviorService struct {
	cfg      *config.Config
	store    ProfileStore
	content  ContentSource
	vectors  ContentVectorSource
	analyzer ContentAnalyzer
	profiles *ProfileService
}

// NewBehaviorService 创建行为记录服务
func NewBehaviorService(cfg *config.Config, store ProfileStore, content ContentSource,
	vectors ContentVectorSource, analyzer ContentAnalyzer, profiles *ProfileService) *BehaviorService {
	return &BehaviorService{
		cfg:      cfg,
		store:    store,
		content:  content,
		vectors:  vectors,
		analyzer: analyzer,
		profiles: profiles,
	}
}

// RecordBehavior 记录一条用户行为
// 内容未通过有效性检查时返回权重0的哨兵记录，不写入行为历史、
// 不参与计数；达到阈值时在后台触发档案更新
func (s *BehaviorService) RecordBehavior(userID, contentID int64, action string,
	timestamp time.Time, source string) (*RecordResult, error) {

	weight, err := WeightFor(action)
	if err != nil {
		return nil, err
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	if source == "" {
		source = "unknown"
	}

	record, err := s.lookupContent(contentID)
	if err != nil {
		return nil, err
	}

	behavior := &models.BehaviorRecord{
		UserID:    userID,
		ContentID: contentID,
		Action:    action,
		Weight:    weight,
		Source:    source,
		Timestamp: timestamp,
	}

	// 行为记录路径与推荐路径使用同一有效性判定
	if !ShouldRecord(record) {
		logger.Warn("内容未通过有效性检查，行为不计入历史",
			"user_id", userID, "content_id", contentID, "action", action)
		behavior.Weight = 0
		return &RecordResult{
			Behavior:      behavior,
			Persisted:     false,
			NextThreshold: s.cfg.Behavior.UpdateThreshold,
		}, nil
	}

	if err := s.store.AppendBehavior(behavior); err != nil {
		return nil, err
	}

	// 计数自增与触发判断必须基于同一原子操作的返回值
	count, err := s.store.IncrementBehaviorCount(userID)
	if err != nil {
		return nil, err
	}

	// 内容向量缺失时后台评价，不阻塞行为记录
	s.ensureVectorAsync(contentID, record)

	threshold := s.cfg.Behavior.UpdateThreshold
	triggered := false
	nextThreshold := threshold - count
	if count >= threshold {
		triggered = true
		nextThreshold = threshold
		go func() {
			if _, err := s.profiles.MaybeUpdate(userID, false, 0); err != nil {
				logger.Error("后台档案更新失败", "user_id", userID, "error", err)
			}
		}()
	}

	logger.Info("记录用户行为",
		"user_id", userID, "content_id", contentID, "action", action,
		"weight", weight, "behavior_count", count, "update_triggered", triggered)

	return &RecordResult{
		Behavior:        behavior,
		Persisted:       true,
		CurrentCount:    count,
		UpdateTriggered: triggered,
		NextThreshold:   max(0, nextThreshold),
	}, nil
}

// lookupContent 获取内容原始记录：优先使用向量库快照，缺失时回源上游平台
func (s *BehaviorService) lookupContent(contentID int64) (*models.ContentRecord, error) {
	vectors, _, err := s.vectors.GetVectors([]int64{contentID})
	if err == nil {
		if vec, ok := vectors[contentID]; ok {
			return &vec.Record, nil
		}
	}

	record, err := s.content.GetContentByID(contentID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch content %d: %v", ErrUpstreamUnavailable, contentID, err)
	}
	return record, nil
}

// ensureVectorAsync 内容向量不存在时后台评价并入库
func (s *BehaviorService) ensureVectorAsync(contentID int64, record *models.ContentRecord) {
	if s.analyzer == nil {
		return
	}
	go func() {
		existing, _, err := s.vectors.GetVectors([]int64{contentID})
		if err != nil || existing[contentID] != nil {
			return
		}

		text := utils.CleanContent(record.Content)
		if text == "" {
			text = utils.CleanContent(record.Description)
		}

		vec := models.NeutralContentVector(contentID)
		if probs, err := s.analyzer.EvaluateContent(text); err == nil {
			vec.Probabilities = probs.NormalizePairs()
			vec.Neutral = false
			vec.ModelVersion = "v1.0"
		} else {
			// 分析器失败使用显式的中性兜底向量
			logger.Warn("内容MBTI评价失败，使用中性兜底", "content_id", contentID, "error", err)
		}
		vec.Record = *record
		vec.PublishTime = utils.ParsePublishTime(record.CreateTime)

		if err := s.vectors.SaveVector(vec); err != nil {
			logger.Error("保存内容向量失败", "content_id", contentID, "error", err)
		}
	}()
}
