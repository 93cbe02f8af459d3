package repository

import (
	"database/sql"
	"encoding/json"
	"errors"

	"mbti_recommender/db"
	"mbti_recommender/logger"
	"mbti_recommender/models"
	"mbti_recommender/services"
)

// MySQLProfileStore 用户MBTI档案与行为历史的MySQL实现
type MySQLProfileStore struct{}

func NewProfileStore() *MySQLProfileStore {
	return &MySQLProfileStore{}
}

// =====================
// 用户档案
// =====================

func (r *MySQLProfileStore) GetProfile(userID int64) (*models.UserProfile, error) {
	row := db.DB.QueryRow(`
        SELECT user_id, probabilities, mbti_type, confidence, analyzed_count,
               behaviors_since_update, version, neutral_fallback, last_updated, created_at
        FROM user_mbti_profiles WHERE user_id = ?`, userID)

	p := &models.UserProfile{}
	var probsJSON, confJSON []byte
	err := row.Scan(&p.UserID, &probsJSON, &p.MBTIType, &confJSON, &p.AnalyzedCount,
		&p.BehaviorsSinceUpdate, &p.Version, &p.NeutralFallback, &p.LastUpdated, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(probsJSON, &p.Probabilities); err != nil {
		return nil, err
	}
	if len(confJSON) > 0 {
		if err := json.Unmarshal(confJSON, &p.Confidence); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SaveProfile 带乐观版本检查的档案保存
// expectedVersion为0表示新建；版本不匹配返回ErrConcurrentUpdateConflict
func (r *MySQLProfileStore) SaveProfile(p *models.UserProfile, expectedVersion int64) error {
	probsJSON, err := json.Marshal(p.Probabilities)
	if err != nil {
		return err
	}
	confJSON, err := json.Marshal(p.Confidence)
	if err != nil {
		return err
	}

	if expectedVersion == 0 {
		_, err := db.DB.Exec(`
            INSERT INTO user_mbti_profiles
                (user_id, probabilities, mbti_type, confidence, analyzed_count,
                 behaviors_since_update, version, neutral_fallback, last_updated, created_at)
            VALUES (?, ?, ?, ?, ?, ?, 1, ?, NOW(), NOW())`,
			p.UserID, probsJSON, p.MBTIType, confJSON, p.AnalyzedCount,
			p.BehaviorsSinceUpdate, p.NeutralFallback)
		if err != nil {
			// 并发创建撞唯一键按版本冲突处理
			return services.ErrConcurrentUpdateConflict
		}
		p.Version = 1
		return nil
	}

	result, err := db.DB.Exec(`
        UPDATE user_mbti_profiles
        SET probabilities = ?, mbti_type = ?, confidence = ?, analyzed_count = ?,
            behaviors_since_update = ?, version = version + 1, neutral_fallback = ?,
            last_updated = NOW()
        WHERE user_id = ? AND version = ?`,
		probsJSON, p.MBTIType, confJSON, p.AnalyzedCount,
		p.BehaviorsSinceUpdate, p.NeutralFallback, p.UserID, expectedVersion)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.ErrConcurrentUpdateConflict
	}
	p.Version = expectedVersion + 1
	return nil
}

// IncrementBehaviorCount 原子自增待分析行为计数并返回新值
// 档案不存在时以中性先验惰性创建
func (r *MySQLProfileStore) IncrementBehaviorCount(userID int64) (int, error) {
	neutral := models.NewNeutralProfile(userID)
	probsJSON, _ := json.Marshal(neutral.Probabilities)
	confJSON, _ := json.Marshal(neutral.Confidence)

	tx, err := db.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO user_mbti_profiles
            (user_id, probabilities, mbti_type, confidence, analyzed_count,
             behaviors_since_update, version, neutral_fallback, last_updated, created_at)
        VALUES (?, ?, ?, ?, 0, 1, 1, 0, NOW(), NOW())
        ON DUPLICATE KEY UPDATE behaviors_since_update = behaviors_since_update + 1`,
		userID, probsJSON, neutral.MBTIType, confJSON)
	if err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRow(`SELECT behaviors_since_update FROM user_mbti_profiles WHERE user_id = ?`,
		userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

// =====================
// 行为历史
// =====================

func (r *MySQLProfileStore) AppendBehavior(b *models.BehaviorRecord) error {
	result, err := db.DB.Exec(`
        INSERT INTO user_behaviors (user_id, content_id, action, weight, source, behavior_time, created_at)
        VALUES (?, ?, ?, ?, ?, ?, NOW())`,
		b.UserID, b.ContentID, b.Action, b.Weight, b.Source, b.Timestamp)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		b.ID = id
	}
	return nil
}

func (r *MySQLProfileStore) RecentBehaviors(userID int64, n int) ([]models.BehaviorRecord, error) {
	rows, err := db.DB.Query(`
        SELECT id, user_id, content_id, action, weight, source, behavior_time, created_at
        FROM user_behaviors
        WHERE user_id = ?
        ORDER BY behavior_time DESC, id DESC
        LIMIT ?`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBehaviors(rows)
}

func (r *MySQLProfileStore) BehaviorHistory(userID int64, action string, limit, offset int) ([]models.BehaviorRecord, int, error) {
	countQuery := `SELECT COUNT(1) FROM user_behaviors WHERE user_id = ?`
	listQuery := `
        SELECT id, user_id, content_id, action, weight, source, behavior_time, created_at
        FROM user_behaviors WHERE user_id = ?`
	countArgs := []interface{}{userID}
	listArgs := []interface{}{userID}

	if action != "" {
		countQuery += ` AND action = ?`
		listQuery += ` AND action = ?`
		countArgs = append(countArgs, action)
		listArgs = append(listArgs, action)
	}
	listQuery += ` ORDER BY behavior_time DESC, id DESC LIMIT ? OFFSET ?`
	listArgs = append(listArgs, limit, offset)

	var total int
	if err := db.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.DB.Query(listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	behaviors, err := scanBehaviors(rows)
	return behaviors, total, err
}

func (r *MySQLProfileStore) SeenContentIDs(userID int64) (map[int64]bool, error) {
	rows, err := db.DB.Query(`SELECT DISTINCT content_id FROM user_behaviors WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err == nil {
			seen[id] = true
		}
	}
	return seen, rows.Err()
}

func (r *MySQLProfileStore) BehaviorStats(userID int64, days int) (*models.BehaviorStats, error) {
	if days <= 0 {
		days = 30
	}

	stats := &models.BehaviorStats{
		ActionDistribution: make(map[string]int),
	}

	if err := db.DB.QueryRow(`SELECT COUNT(1) FROM user_behaviors WHERE user_id = ?`,
		userID).Scan(&stats.TotalBehaviors); err != nil {
		return nil, err
	}

	rows, err := db.DB.Query(`
        SELECT action, COUNT(1)
        FROM user_behaviors
        WHERE user_id = ? AND behavior_time >= DATE_SUB(NOW(), INTERVAL ? DAY)
        GROUP BY action`, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			continue
		}
		stats.ActionDistribution[action] = count
		stats.RecentBehaviors += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullTime
	if err := db.DB.QueryRow(`SELECT MAX(behavior_time) FROM user_behaviors WHERE user_id = ?`,
		userID).Scan(&last); err == nil && last.Valid {
		t := last.Time
		stats.LastActivity = &t
	}

	var sinceUpdate sql.NullInt64
	if err := db.DB.QueryRow(`SELECT behaviors_since_update FROM user_mbti_profiles WHERE user_id = ?`,
		userID).Scan(&sinceUpdate); err == nil && sinceUpdate.Valid {
		stats.BehaviorsSinceUpdate = int(sinceUpdate.Int64)
	}

	stats.DailyAverage = float64(stats.RecentBehaviors) / float64(days)
	switch {
	case stats.DailyAverage >= 5:
		stats.ActivityLevel = "high"
	case stats.DailyAverage >= 1:
		stats.ActivityLevel = "medium"
	default:
		stats.ActivityLevel = "low"
	}
	return stats, nil
}

func scanBehaviors(rows *sql.Rows) ([]models.BehaviorRecord, error) {
	behaviors := make([]models.BehaviorRecord, 0)
	for rows.Next() {
		var b models.BehaviorRecord
		var source sql.NullString
		if err := rows.Scan(&b.ID, &b.UserID, &b.ContentID, &b.Action, &b.Weight,
			&source, &b.Timestamp, &b.CreatedAt); err != nil {
			return nil, err
		}
		if source.Valid {
			b.Source = source.String
		}
		behaviors = append(behaviors, b)
	}
	return behaviors, rows.Err()
}

// =====================
// 档案更新审计
// =====================

func (r *MySQLProfileStore) AppendUpdateAudit(a *models.ProfileUpdateAudit) error {
	changesJSON, err := json.Marshal(a.Changes)
	if err != nil {
		return err
	}
	_, err = db.DB.Exec(`
        INSERT INTO profile_update_audits
            (user_id, trigger_type, behaviors_analyzed, old_type, new_type, changes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, NOW())`,
		a.UserID, a.Trigger, a.BehaviorsAnalyzed, a.OldType, a.NewType, changesJSON)
	return err
}

// =====================
// 调度器支持
// =====================

// ListDueProfileUserIDs 返回待分析行为数达到阈值的用户ID列表
func ListDueProfileUserIDs(threshold, limit int) ([]int64, error) {
	rows, err := db.DB.Query(`
        SELECT user_id FROM user_mbti_profiles
        WHERE behaviors_since_update >= ?
        ORDER BY behaviors_since_update DESC
        LIMIT ?`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logger.Error("扫描待更新用户ID失败", "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ services.ProfileStore = (*MySQLProfileStore)(nil)
