package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"mbti_recommender/db"
	"mbti_recommender/models"
	"mbti_recommender/services"
)

// MySQLContentVectorStore 内容MBTI向量的MySQL实现
type MySQLContentVectorStore struct{}

func NewContentVectorStore() *MySQLContentVectorStore {
	return &MySQLContentVectorStore{}
}

const vectorColumns = `content_id, probabilities, quality_score, record, publish_time, neutral, model_version, created_at`

func scanVector(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ContentVector, error) {
	v := &models.ContentVector{}
	var probsJSON, recordJSON []byte
	var publishTime sql.NullTime
	err := scanner.Scan(&v.ContentID, &probsJSON, &v.QualityScore, &recordJSON,
		&publishTime, &v.Neutral, &v.ModelVersion, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(probsJSON, &v.Probabilities); err != nil {
		return nil, err
	}
	if len(recordJSON) > 0 {
		if err := json.Unmarshal(recordJSON, &v.Record); err != nil {
			return nil, err
		}
	}
	if publishTime.Valid {
		t := publishTime.Time
		v.PublishTime = &t
	}
	return v, nil
}

// GetVectors 按ID批量获取向量，返回找到的映射和未找到的ID列表
func (r *MySQLContentVectorStore) GetVectors(contentIDs []int64) (map[int64]*models.ContentVector, []int64, error) {
	found := make(map[int64]*models.ContentVector)
	if len(contentIDs) == 0 {
		return found, nil, nil
	}

	placeholders := make([]string, len(contentIDs))
	args := make([]interface{}, len(contentIDs))
	for i, id := range contentIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM content_mbti_vectors WHERE content_id IN (%s)`,
		vectorColumns, strings.Join(placeholders, ","))
	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, nil, err
		}
		found[v.ContentID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	missing := make([]int64, 0)
	for _, id := range contentIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// Candidates 返回推荐候选池，按入库时间倒序
func (r *MySQLContentVectorStore) Candidates(limit int) ([]*models.ContentVector, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf(`SELECT %s FROM content_mbti_vectors ORDER BY created_at DESC LIMIT ?`, vectorColumns)
	rows, err := db.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vectors := make([]*models.ContentVector, 0, limit)
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

// SaveVector 保存内容向量，概率入库前归一化
func (r *MySQLContentVectorStore) SaveVector(v *models.ContentVector) error {
	v.Probabilities = v.Probabilities.NormalizePairs()

	probsJSON, err := json.Marshal(v.Probabilities)
	if err != nil {
		return err
	}
	recordJSON, err := json.Marshal(v.Record)
	if err != nil {
		return err
	}

	var publishTime interface{}
	if v.PublishTime != nil {
		publishTime = *v.PublishTime
	}

	_, err = db.DB.Exec(`
        INSERT INTO content_mbti_vectors
            (content_id, probabilities, quality_score, record, publish_time, neutral, model_version, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, NOW())
        ON DUPLICATE KEY UPDATE
            probabilities = VALUES(probabilities),
            quality_score = VALUES(quality_score),
            record = VALUES(record),
            publish_time = VALUES(publish_time),
            neutral = VALUES(neutral),
            model_version = VALUES(model_version)`,
		v.ContentID, probsJSON, v.QualityScore, recordJSON, publishTime, v.Neutral, v.ModelVersion)
	return err
}

var _ services.ContentVectorSource = (*MySQLContentVectorStore)(nil)
