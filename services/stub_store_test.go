package services

import (
	"time"

	"mbti_recommender/models"
)

// stubStore 内存版ProfileStore，测试专用
type stubStore struct {
	profiles  map[int64]*models.UserProfile
	behaviors map[int64][]models.BehaviorRecord
	seen      map[int64]map[int64]bool
	audits    []*models.ProfileUpdateAudit

	// conflicts 前N次SaveProfile返回冲突
	conflicts int
	saves     int

	// getProfileErr 非空时GetProfile返回该错误
	getProfileErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		profiles:  make(map[int64]*models.UserProfile),
		behaviors: make(map[int64][]models.BehaviorRecord),
		seen:      make(map[int64]map[int64]bool),
	}
}

func (s *stubStore) GetProfile(userID int64) (*models.UserProfile, error) {
	if s.getProfileErr != nil {
		return nil, s.getProfileErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubStore) SaveProfile(p *models.UserProfile, expectedVersion int64) error {
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		return ErrConcurrentUpdateConflict
	}
	if existing, ok := s.profiles[p.UserID]; ok && existing.Version != expectedVersion {
		return ErrConcurrentUpdateConflict
	}
	cp := *p
	cp.Version = expectedVersion + 1
	s.profiles[p.UserID] = &cp
	p.Version = cp.Version
	return nil
}

func (s *stubStore) AppendBehavior(b *models.BehaviorRecord) error {
	b.ID = int64(len(s.behaviors[b.UserID]) + 1)
	s.behaviors[b.UserID] = append(s.behaviors[b.UserID], *b)
	return nil
}

func (s *stubStore) IncrementBehaviorCount(userID int64) (int, error) {
	p, ok := s.profiles[userID]
	if !ok {
		p = models.NewNeutralProfile(userID)
		p.Version = 1
		s.profiles[userID] = p
	}
	p.BehaviorsSinceUpdate++
	return p.BehaviorsSinceUpdate, nil
}

func (s *stubStore) RecentBehaviors(userID int64, n int) ([]models.BehaviorRecord, error) {
	all := s.behaviors[userID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]models.BehaviorRecord, len(all))
	copy(out, all)
	return out, nil
}

func (s *stubStore) BehaviorHistory(userID int64, action string, limit, offset int) ([]models.BehaviorRecord, int, error) {
	filtered := make([]models.BehaviorRecord, 0)
	for _, b := range s.behaviors[userID] {
		if action == "" || b.Action == action {
			filtered = append(filtered, b)
		}
	}
	total := len(filtered)
	if offset >= len(filtered) {
		return nil, total, nil
	}
	filtered = filtered[offset:]
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, total, nil
}

func (s *stubStore) SeenContentIDs(userID int64) (map[int64]bool, error) {
	if seen, ok := s.seen[userID]; ok {
		return seen, nil
	}
	seen := make(map[int64]bool)
	for _, b := range s.behaviors[userID] {
		seen[b.ContentID] = true
	}
	return seen, nil
}

func (s *stubStore) BehaviorStats(userID int64, days int) (*models.BehaviorStats, error) {
	return &models.BehaviorStats{}, nil
}

func (s *stubStore) AppendUpdateAudit(a *models.ProfileUpdateAudit) error {
	s.audits = append(s.audits, a)
	return nil
}

// stubVectors 内存版ContentVectorSource
type stubVectors struct {
	vectors map[int64]*models.ContentVector
	order   []int64
}

func newStubVectors() *stubVectors {
	return &stubVectors{vectors: make(map[int64]*models.ContentVector)}
}

func (s *stubVectors) add(v *models.ContentVector) {
	if _, ok := s.vectors[v.ContentID]; !ok {
		s.order = append(s.order, v.ContentID)
	}
	s.vectors[v.ContentID] = v
}

func (s *stubVectors) GetVectors(contentIDs []int64) (map[int64]*models.ContentVector, []int64, error) {
	found := make(map[int64]*models.ContentVector)
	missing := make([]int64, 0)
	for _, id := range contentIDs {
		if v, ok := s.vectors[id]; ok {
			found[id] = v
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

func (s *stubVectors) Candidates(limit int) ([]*models.ContentVector, error) {
	out := make([]*models.ContentVector, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.vectors[id])
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubVectors) SaveVector(v *models.ContentVector) error {
	v.Probabilities = v.Probabilities.NormalizePairs()
	s.add(v)
	return nil
}

// recordingCache 记录失效调用的缓存
type recordingCache struct {
	inner       *MemoryCache
	invalidated []int64
}

func newRecordingCache() *recordingCache {
	return &recordingCache{inner: NewMemoryCache()}
}

func (c *recordingCache) Get(key string) (*models.RankedList, bool) { return c.inner.Get(key) }

func (c *recordingCache) Put(key string, list *models.RankedList, ttl time.Duration) {
	c.inner.Put(key, list, ttl)
}

func (c *recordingCache) InvalidateUser(userID int64) {
	c.invalidated = append(c.invalidated, userID)
	c.inner.InvalidateUser(userID)
}

// eligibleRecord 构造一条通过有效性检查的内容记录
func eligibleRecord(id int64, title string) models.ContentRecord {
	return models.ContentRecord{
		ID:         id,
		Title:      title,
		CoverImage: "https://img.example.com/cover.jpg",
		Content:    "正文内容",
		State:      models.ContentStateOnShelf,
		AuditState: models.AuditStatePass,
	}
}

// vectorWith 构造带指定概率的内容向量
func vectorWith(id int64, probs models.Probabilities, quality float64) *models.ContentVector {
	return &models.ContentVector{
		ContentID:     id,
		Probabilities: probs,
		QualityScore:  quality,
		Record:        eligibleRecord(id, "内容"),
		CreatedAt:     time.Now().UTC(),
	}
}
