package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"mbti_recommender/models"
)

// stubContent 内存版ContentSource
type stubContent struct {
	records map[int64]models.ContentRecord
	err     error
}

func newStubContent() *stubContent {
	return &stubContent{records: make(map[int64]models.ContentRecord)}
}

func (s *stubContent) GetContentByID(contentID int64, contentType string) (*models.ContentRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	record, ok := s.records[contentID]
	if !ok {
		return nil, ErrContentNotFound
	}
	return &record, nil
}

func (s *stubContent) GetContentsBatch(contentIDs []int64) ([]models.ContentRecord, error) {
	out := make([]models.ContentRecord, 0)
	for _, id := range contentIDs {
		if record, ok := s.records[id]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *stubContent) ListOnShelf(page, pageSize int) ([]models.ContentRecord, error) {
	return nil, nil
}

func newTestBehaviorService(store *stubStore, content *stubContent, vectors *stubVectors) *BehaviorService {
	cfg := testConfig()
	profiles := NewProfileService(cfg, store, vectors, nil)
	return NewBehaviorService(cfg, store, content, vectors, nil, profiles)
}

func TestRecordBehaviorPersistsEligible(t *testing.T) {
	store := newStubStore()
	content := newStubContent()
	vectors := newStubVectors()
	content.records[100] = eligibleRecord(100, "标题")

	svc := newTestBehaviorService(store, content, vectors)
	result, err := svc.RecordBehavior(1, 100, models.ActionLike, time.Time{}, "test")
	if err != nil {
		t.Fatalf("RecordBehavior() error: %v", err)
	}

	if !result.Persisted {
		t.Error("eligible content behavior should be persisted")
	}
	if result.Behavior.Weight != 0.8 {
		t.Errorf("weight = %v, want 0.8", result.Behavior.Weight)
	}
	if result.CurrentCount != 1 {
		t.Errorf("current count = %d, want 1", result.CurrentCount)
	}
	if len(store.behaviors[1]) != 1 {
		t.Fatalf("stored behaviors = %d, want 1", len(store.behaviors[1]))
	}
	if result.UpdateTriggered {
		t.Error("single behavior must not trigger update at threshold 50")
	}
}

func TestRecordBehaviorUnsupportedAction(t *testing.T) {
	svc := newTestBehaviorService(newStubStore(), newStubContent(), newStubVectors())
	_, err := svc.RecordBehavior(1, 100, "purchase", time.Time{}, "")
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("error = %v, want ErrUnsupportedAction", err)
	}
}

func TestRecordBehaviorIneligibleContentDiscarded(t *testing.T) {
	store := newStubStore()
	content := newStubContent()
	record := eligibleRecord(100, "标题")
	record.AuditState = "Reject"
	content.records[100] = record

	svc := newTestBehaviorService(store, content, newStubVectors())
	result, err := svc.RecordBehavior(1, 100, models.ActionLike, time.Time{}, "")
	if err != nil {
		t.Fatalf("ineligible content must not be an error, got: %v", err)
	}

	if result.Persisted {
		t.Error("ineligible content behavior must not be persisted")
	}
	if !result.Behavior.Discarded() {
		t.Errorf("discarded behavior weight = %v, want 0", result.Behavior.Weight)
	}
	if len(store.behaviors[1]) != 0 {
		t.Error("discarded behavior must not appear in history")
	}
	if _, ok := store.profiles[1]; ok {
		t.Error("discarded behavior must not create a profile")
	}
}

func TestRecordBehaviorUpstreamUnavailable(t *testing.T) {
	content := newStubContent()
	content.err = fmt.Errorf("connection refused")

	svc := newTestBehaviorService(newStubStore(), content, newStubVectors())
	_, err := svc.RecordBehavior(1, 100, models.ActionView, time.Time{}, "")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestRecordBehaviorUsesVectorSnapshot(t *testing.T) {
	store := newStubStore()
	content := newStubContent()
	vectors := newStubVectors()

	// 上游不可用，但向量库有内容快照
	content.err = fmt.Errorf("connection refused")
	vectors.add(vectorWith(100, models.NeutralProbabilities(), 0.5))

	svc := newTestBehaviorService(store, content, vectors)
	result, err := svc.RecordBehavior(1, 100, models.ActionCollect, time.Time{}, "")
	if err != nil {
		t.Fatalf("snapshot should cover upstream outage, got: %v", err)
	}
	if !result.Persisted {
		t.Error("behavior should be persisted from snapshot")
	}
}

func TestRecordBehaviorTriggersUpdateAtThreshold(t *testing.T) {
	store := newStubStore()
	content := newStubContent()
	vectors := newStubVectors()
	content.records[100] = eligibleRecord(100, "标题")
	vectors.add(vectorWith(100, models.NeutralProbabilities(), 0.5))

	// 档案已累积49条待分析行为
	p := models.NewNeutralProfile(1)
	p.BehaviorsSinceUpdate = 49
	p.Version = 1
	store.profiles[1] = p
	seedBehaviors(store, 1, []int64{100}, models.ActionLike, 49)

	svc := newTestBehaviorService(store, content, vectors)
	result, err := svc.RecordBehavior(1, 100, models.ActionLike, time.Time{}, "")
	if err != nil {
		t.Fatalf("RecordBehavior() error: %v", err)
	}

	if result.CurrentCount != 50 {
		t.Errorf("current count = %d, want 50", result.CurrentCount)
	}
	if !result.UpdateTriggered {
		t.Error("50th behavior should trigger a profile update")
	}
}
