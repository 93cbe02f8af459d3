package scheduler

import (
	"sync"
	"time"

	"mbti_recommender/config"
	"mbti_recommender/logger"
	"mbti_recommender/models"
	"mbti_recommender/repository"
	"mbti_recommender/services"
	"mbti_recommender/utils"
)

// 任务类型
type TaskType int

const (
	TaskProfileUpdates TaskType = iota
	TaskContentSync
)

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	Interval    time.Duration
	IsRunning   bool
	Description string
}

// Deps 调度器依赖的服务
type Deps struct {
	Profiles *services.ProfileService
	Analyzer *services.AnalyzerService
	Content  services.ContentSource
	Vectors  services.ContentVectorSource
}

// 任务调度器
type Scheduler struct {
	cfg         *config.Config
	deps        *Deps
	concurrency int
	tasks       map[TaskType]*TaskStatus
	mutex       sync.Mutex
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, deps *Deps) *Scheduler {
	concurrency := cfg.Scheduler.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	return &Scheduler{
		cfg:         cfg,
		deps:        deps,
		concurrency: concurrency,
		tasks:       make(map[TaskType]*TaskStatus),
	}
}

// 启动调度器
func Start(cfg *config.Config, deps *Deps) {
	scheduler := NewScheduler(cfg, deps)
	scheduler.initTasks()
	go scheduler.run()

	logger.Info("调度器已启动",
		"check_interval_sec", cfg.Scheduler.CheckIntervalSec,
		"content_sync_sec", cfg.Scheduler.ContentSyncSec,
		"concurrency", scheduler.concurrency)
}

// 初始化任务
func (s *Scheduler) initTasks() {
	now := time.Now()

	profileInterval := time.Duration(s.cfg.Scheduler.CheckIntervalSec) * time.Second
	s.tasks[TaskProfileUpdates] = &TaskStatus{
		NextRun:     now.Add(profileInterval),
		Interval:    profileInterval,
		Description: "到期档案批量更新",
	}

	syncInterval := time.Duration(s.cfg.Scheduler.ContentSyncSec) * time.Second
	s.tasks[TaskContentSync] = &TaskStatus{
		NextRun:     now.Add(30 * time.Second), // 启动后尽快做一次内容同步
		Interval:    syncInterval,
		Description: "上游内容同步与向量评价",
	}

	logger.Info("定时任务初始化完成", "task_count", len(s.tasks))
}

// 主循环
func (s *Scheduler) run() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for now := range ticker.C {
		s.checkTasks(now)
	}
}

// 检查任务
func (s *Scheduler) checkTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		if status.IsRunning {
			continue
		}
		if now.After(status.NextRun) || now.Equal(status.NextRun) {
			status.IsRunning = true
			go s.runTask(taskType, now)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(taskType TaskType, now time.Time) {
	s.mutex.Lock()
	description := s.tasks[taskType].Description
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now
		status.NextRun = now.Add(status.Interval)
		logger.Info("任务执行完成", "task", status.Description,
			"next_run", status.NextRun.Format("2006-01-02 15:04:05"))
	}()

	logger.Info("开始执行任务", "task", description)

	switch taskType {
	case TaskProfileUpdates:
		s.runProfileUpdates()
	case TaskContentSync:
		s.runContentSync()
	}
}

// runProfileUpdates 批量更新待分析行为数达到阈值的用户档案
func (s *Scheduler) runProfileUpdates() {
	userIDs, err := repository.ListDueProfileUserIDs(s.cfg.Behavior.UpdateThreshold, 500)
	if err != nil {
		logger.Error("获取待更新用户列表失败", "error", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	logger.Info("找到待更新用户", "count", len(userIDs), "concurrency", s.concurrency)

	// 使用信号量限制并发数
	semaphore := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, userID := range userIDs {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if _, err := s.deps.Profiles.MaybeUpdate(uid, false, 0); err != nil {
				logger.Error("定时档案更新失败", "user_id", uid, "error", err)
			}
		}(userID)
	}
	wg.Wait()
}

// runContentSync 分页拉取上游内容，为没有向量的内容做MBTI评价入库
func (s *Scheduler) runContentSync() {
	pageSize := s.cfg.SohuAPI.PageSize
	synced, evaluated := 0, 0

	for page := 1; page <= s.cfg.Scheduler.ContentSyncPages; page++ {
		records, err := s.deps.Content.ListOnShelf(page, pageSize)
		if err != nil {
			logger.Error("拉取上游内容失败", "page", page, "error", err)
			return
		}
		if len(records) == 0 {
			break
		}
		synced += len(records)

		ids := make([]int64, 0, len(records))
		byID := make(map[int64]models.ContentRecord, len(records))
		for _, record := range records {
			if record.ID > 0 {
				ids = append(ids, record.ID)
				byID[record.ID] = record
			}
		}

		_, missing, err := s.deps.Vectors.GetVectors(ids)
		if err != nil {
			logger.Error("查询内容向量失败", "error", err)
			continue
		}

		// 只对没有向量的内容调用LLM
		pending := make(map[int64]string, len(missing))
		for _, id := range missing {
			record := byID[id]
			text := utils.CleanContent(record.Content)
			if text == "" {
				text = utils.CleanContent(record.Title + "\n" + record.Description)
			}
			pending[id] = text
		}

		for _, result := range s.deps.Analyzer.EvaluateBatch(pending) {
			record := byID[result.ContentID]
			vec := models.NeutralContentVector(result.ContentID)
			if result.Err == nil {
				vec.Probabilities = result.Probabilities
				vec.Neutral = false
				vec.ModelVersion = "v1.0"
			} else {
				logger.Warn("内容MBTI评价失败，使用中性兜底",
					"content_id", result.ContentID, "error", result.Err)
			}
			vec.Record = record
			vec.PublishTime = utils.ParsePublishTime(record.CreateTime)

			if err := s.deps.Vectors.SaveVector(vec); err != nil {
				logger.Error("保存内容向量失败", "content_id", result.ContentID, "error", err)
				continue
			}
			evaluated++
		}
	}

	logger.Info("内容同步完成", "synced", synced, "evaluated", evaluated)
}
