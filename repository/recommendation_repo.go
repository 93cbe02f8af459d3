package repository

import (
	"encoding/json"

	"mbti_recommender/db"
	"mbti_recommender/models"
	"mbti_recommender/services"
)

// MySQLRecommendationLogStore 推荐日志落库实现
type MySQLRecommendationLogStore struct{}

func NewRecommendationLogStore() *MySQLRecommendationLogStore {
	return &MySQLRecommendationLogStore{}
}

// AppendRecommendationLog 记录一次推荐结果，用于离线分析推荐质量
func (r *MySQLRecommendationLogStore) AppendRecommendationLog(userID int64,
	list *models.RankedList, opts models.RecommendationOptions) error {

	contentIDs := make([]int64, 0, len(list.Recommendations))
	for _, item := range list.Recommendations {
		contentIDs = append(contentIDs, item.ContentID)
	}
	idsJSON, err := json.Marshal(contentIDs)
	if err != nil {
		return err
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return err
	}

	_, err = db.DB.Exec(`
        INSERT INTO recommendation_logs
            (user_id, mbti_type, reason, content_ids, options, candidate_count,
             eligible_count, avg_similarity, fallback_profile, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())`,
		userID, list.UserMBTIType, list.Reason, idsJSON, optsJSON,
		list.Metadata.TotalCandidates, list.Metadata.EligibleCount,
		list.Metadata.AvgSimilarity, list.Metadata.FallbackProfile)
	return err
}

var _ services.RecommendationLogStore = (*MySQLRecommendationLogStore)(nil)
