package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
)

// 档案写冲突时的最大重试次数
const maxSaveRetries = 3

// ProfileService 用户MBTI档案服务
// 同一用户同一时刻最多一个更新在执行：进程内每用户互斥锁，
// 跨进程由存储层的版本检查兜底
type ProfileService struct {
	cfg     *config.Config
	store   ProfileStore
	vectors ContentVectorSource
	cache   RecommendationCache

	userLocks sync.Map // userID -> *sync.Mutex
}

// NewProfileService 创建档案服务
func NewProfileService(cfg *config.Config, store ProfileStore, vectors ContentVectorSource, cache RecommendationCache) *ProfileService {
	return &ProfileService{cfg: cfg, store: store, vectors: vectors, cache: cache}
}

// lockUser 获取指定用户的互斥锁
func (s *ProfileService) lockUser(userID int64) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GetProfile 获取用户档案，不存在时返回中性先验（不落库）
func (s *ProfileService) GetProfile(userID int64) (*models.UserProfile, error) {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		neutral := models.NewNeutralProfile(userID)
		neutral.NeutralFallback = true
		return neutral, nil
	}
	return profile, nil
}

// MaybeUpdate 触发用户MBTI档案更新
// force=true跳过阈值检查但仍然要求最小行为数量；window<=0使用阈值作为窗口
func (s *ProfileService) MaybeUpdate(userID int64, force bool, window int) (*models.UpdateResult, error) {
	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	threshold := s.cfg.Behavior.UpdateThreshold
	if window <= 0 {
		window = threshold
	}
	if window > s.cfg.Behavior.MaxWindow {
		window = s.cfg.Behavior.MaxWindow
	}

	var result *models.UpdateResult
	var err error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		result, err = s.updateOnce(userID, force, window, threshold)
		if errors.Is(err, ErrConcurrentUpdateConflict) {
			logger.Warn("档案写入冲突，重试", "user_id", userID, "attempt", attempt+1)
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("%w: user %d", ErrConcurrentUpdateConflict, userID)
}

// updateOnce 执行一次读取-融合-写入事务
func (s *ProfileService) updateOnce(userID int64, force bool, window, threshold int) (*models.UpdateResult, error) {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	// 非强制更新时检查阈值
	if !force && profile != nil && profile.BehaviorsSinceUpdate < threshold {
		logger.Info("行为数量未达到更新阈值",
			"user_id", userID,
			"behaviors_since_update", profile.BehaviorsSinceUpdate,
			"threshold", threshold)
		return &models.UpdateResult{
			Updated: false,
			Reason:  "行为数量未达到更新阈值",
			UserID:  userID,
		}, nil
	}

	// 选取最近的有效加权行为
	behaviors, err := s.store.RecentBehaviors(userID, window)
	if err != nil {
		return nil, err
	}

	minBehaviors := s.cfg.Behavior.MinBehaviors
	if len(behaviors) < minBehaviors {
		logger.Warn("行为数量不足，无法分析",
			"user_id", userID, "behaviors", len(behaviors), "min", minBehaviors)
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(behaviors), minBehaviors)
	}

	// 聚合每个内容的累计权重
	contentWeights := make(map[int64]float64)
	for _, b := range behaviors {
		contentWeights[b.ContentID] += b.Weight
	}
	contentIDs := make([]int64, 0, len(contentWeights))
	for id := range contentWeights {
		contentIDs = append(contentIDs, id)
	}

	vectors, missing, err := s.vectors.GetVectors(contentIDs)
	if err != nil {
		return nil, err
	}
	// 缺失向量的内容使用中性兜底，保持与行为权重的对应关系
	for _, id := range missing {
		vectors[id] = models.NeutralContentVector(id)
	}

	// 计算新观测分布：按行为权重的加权平均
	observed := s.weightedObserved(contentWeights, vectors)

	// 与历史档案融合
	firstUpdate := profile == nil || profile.AnalyzedCount == 0
	newWeight := s.cfg.Behavior.NewAnalysisWeight
	historyWeight := s.cfg.Behavior.HistoryWeight
	if firstUpdate {
		newWeight = 1.0
		historyWeight = 0.0
	}

	oldProbs := models.NeutralProbabilities()
	oldType := ""
	var expectedVersion int64
	if profile != nil {
		oldProbs = profile.Probabilities
		oldType = profile.MBTIType
		expectedVersion = profile.Version
	}

	var blended models.Probabilities
	for _, trait := range models.Traits {
		blended.Set(trait, historyWeight*oldProbs.Get(trait)+newWeight*observed.Get(trait))
	}
	// 每对归一化，防止浮点漂移
	blended = blended.NormalizePairs()

	// 构建更新后的档案
	now := time.Now().UTC()
	updated := profile
	if updated == nil {
		updated = models.NewNeutralProfile(userID)
	}
	updated.Probabilities = blended
	updated.Recompute()
	updated.AnalyzedCount += len(behaviors)
	updated.BehaviorsSinceUpdate = 0
	updated.LastUpdated = now
	updated.NeutralFallback = false

	// 原子持久化：版本不匹配返回ErrConcurrentUpdateConflict由调用方重试
	if err := s.store.SaveProfile(updated, expectedVersion); err != nil {
		return nil, err
	}

	trigger := models.UpdateTriggerThreshold
	if force {
		trigger = models.UpdateTriggerForced
	}
	changes := traitChanges(oldProbs, blended)

	// 审计记录失败不阻断更新
	audit := &models.ProfileUpdateAudit{
		UserID:            userID,
		Trigger:           trigger,
		BehaviorsAnalyzed: len(behaviors),
		OldType:           oldType,
		NewType:           updated.MBTIType,
		Changes:           changes,
		CreatedAt:         now,
	}
	if err := s.store.AppendUpdateAudit(audit); err != nil {
		logger.Error("写入档案更新审计失败", "user_id", userID, "error", err)
	}

	// 强制更新后的缓存命中是正确性问题，必须立即失效
	if s.cache != nil {
		s.cache.InvalidateUser(userID)
	}

	logger.Info("用户MBTI档案更新完成",
		"user_id", userID,
		"trigger", trigger,
		"old_type", oldType,
		"new_type", updated.MBTIType,
		"behaviors_analyzed", len(behaviors))

	return &models.UpdateResult{
		Updated:           true,
		UserID:            userID,
		OldMBTIType:       oldType,
		NewMBTIType:       updated.MBTIType,
		BehaviorsAnalyzed: len(behaviors),
		ContentsAnalyzed:  len(contentIDs),
		Changes:           changes,
		UpdateTime:        &now,
		NewProfile:        updated,
	}, nil
}

// weightedObserved 按内容累计权重计算加权平均概率分布
func (s *ProfileService) weightedObserved(contentWeights map[int64]float64, vectors map[int64]*models.ContentVector) models.Probabilities {
	var observed models.Probabilities
	totalWeight := 0.0
	for contentID, weight := range contentWeights {
		vec, ok := vectors[contentID]
		if !ok {
			continue
		}
		probs := vec.Probabilities.NormalizePairs()
		for _, trait := range models.Traits {
			observed.Set(trait, observed.Get(trait)+probs.Get(trait)*weight)
		}
		totalWeight += weight
	}
	if totalWeight > 0 {
		for _, trait := range models.Traits {
			observed.Set(trait, observed.Get(trait)/totalWeight)
		}
	}
	return observed.NormalizePairs()
}

// traitChanges 计算每个字母的概率变化
func traitChanges(oldProbs, newProbs models.Probabilities) map[string]models.TraitChange {
	changes := make(map[string]models.TraitChange, len(models.Traits))
	for _, trait := range models.Traits {
		oldVal := oldProbs.Get(trait)
		newVal := newProbs.Get(trait)
		changes[trait] = models.TraitChange{
			Old:    oldVal,
			New:    newVal,
			Change: newVal - oldVal,
		}
	}
	return changes
}
