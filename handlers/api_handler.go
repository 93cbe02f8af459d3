package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"mbti_recommender/config"
	"mbti_recommender/db"
	_ "mbti_recommender/docs" // 导入 swagger 文档
	"mbti_recommender/models"
	"mbti_recommender/services"
	"mbti_recommender/utils"
)

// Deps 处理器依赖的服务集合
type Deps struct {
	Cfg             *config.Config
	Behaviors       *services.BehaviorService
	Profiles        *services.ProfileService
	Recommendations *services.RecommendationService
	Store           services.ProfileStore
	Content         services.ContentSource
	Vectors         services.ContentVectorSource
	Analyzer        *services.AnalyzerService
}

// writeServiceError 服务层错误到响应码的统一映射
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnsupportedAction):
		utils.WriteCustomErrorResponse(w, models.CodeUnsupportedAction, err.Error(), map[string]interface{}{})
	case errors.Is(err, services.ErrInsufficientData):
		utils.WriteCustomErrorResponse(w, models.CodeInsufficientData, err.Error(), map[string]interface{}{})
	case errors.Is(err, services.ErrConcurrentUpdateConflict):
		utils.WriteCustomErrorResponse(w, models.CodeUpdateConflict, err.Error(), map[string]interface{}{})
	case errors.Is(err, services.ErrContentNotFound):
		utils.WriteErrorResponse(w, models.CodeContentNotFound, map[string]interface{}{})
	case errors.Is(err, services.ErrUpstreamUnavailable):
		utils.WriteCustomErrorResponse(w, models.CodeUpstreamError, err.Error(), map[string]interface{}{})
	case utils.IsSQLNoRowsError(err):
		utils.WriteErrorResponse(w, models.CodeDatabaseError, map[string]interface{}{})
	default:
		utils.WriteCustomErrorResponse(w, models.CodeServerError, err.Error(), map[string]interface{}{})
	}
}

// RecordBehaviorHandler godoc
// @Summary 记录用户行为
// @Description 记录一条用户行为并按权重计入档案分析，达到阈值时后台触发MBTI档案更新
// @Tags 用户行为
// @Accept json
// @Produce json
// @Param request body models.BehaviorRecordRequest true "行为记录"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/v1/behavior/record [post]
func RecordBehaviorHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	var req models.BehaviorRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{"error": err.Error()})
		return
	}
	if req.UserID <= 0 || req.ContentID <= 0 || req.Action == "" {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"required": []string{"user_id", "content_id", "action"},
		})
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{
				"param": "timestamp", "value": req.Timestamp,
			})
			return
		}
		ts = parsed
	}

	result, err := d.Behaviors.RecordBehavior(req.UserID, req.ContentID, req.Action, ts, req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// BehaviorHistoryHandler godoc
// @Summary 查询用户行为历史
// @Description 分页查询用户行为历史，可按行为类型过滤
// @Tags 用户行为
// @Produce json
// @Param user_id path int true "用户ID"
// @Param action query string false "行为类型过滤"
// @Param limit query int false "每页数量" default(20)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/v1/behavior/history/{user_id} [get]
func BehaviorHistoryHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	userID, ok := utils.ParseID(w, chi.URLParam(r, "user_id"), "user_id")
	if !ok {
		return
	}

	action := r.URL.Query().Get("action")
	limit := utils.QueryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := utils.QueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	behaviors, total, err := d.Store.BehaviorHistory(userID, action, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user_id":   userID,
		"behaviors": behaviors,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// BehaviorStatsHandler godoc
// @Summary 查询用户行为统计
// @Description 统计用户近N天的行为分布与活跃度
// @Tags 用户行为
// @Produce json
// @Param user_id path int true "用户ID"
// @Param days query int false "统计天数" default(30)
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/v1/behavior/stats/{user_id} [get]
func BehaviorStatsHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	userID, ok := utils.ParseID(w, chi.URLParam(r, "user_id"), "user_id")
	if !ok {
		return
	}

	stats, err := d.Store.BehaviorStats(userID, utils.QueryInt(r, "days", 30))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, stats)
}

// GetProfileHandler godoc
// @Summary 获取用户MBTI档案
// @Description 获取用户的MBTI概率档案，无档案用户返回中性兜底档案
// @Tags MBTI档案
// @Produce json
// @Param user_id path int true "用户ID"
// @Success 200 {object} models.ProfileResponse "成功"
// @Router /api/v1/mbti/profile/{user_id} [get]
func GetProfileHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	userID, ok := utils.ParseID(w, chi.URLParam(r, "user_id"), "user_id")
	if !ok {
		return
	}

	profile, err := d.Profiles.GetProfile(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := map[string]interface{}{
		"profile":          profile,
		"type_description": models.MBTITypeDescriptions[profile.MBTIType],
	}
	utils.WriteSuccessResponse(w, data)
}

// UpdateProfileHandler godoc
// @Summary 触发用户MBTI档案更新
// @Description 分析用户近期行为并更新MBTI档案。force_update为true时忽略阈值检查，
// @Description 但行为数量低于分析下限时仍然拒绝
// @Tags MBTI档案
// @Accept json
// @Produce json
// @Param user_id path int true "用户ID"
// @Param request body models.MBTIUpdateRequest false "更新选项"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "行为数据不足"
// @Router /api/v1/mbti/update/{user_id} [post]
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	userID, ok := utils.ParseID(w, chi.URLParam(r, "user_id"), "user_id")
	if !ok {
		return
	}

	var req models.MBTIUpdateRequest
	if r.Body != nil {
		// 请求体可选，解析失败按默认选项处理
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := d.Profiles.MaybeUpdate(userID, req.ForceUpdate, req.AnalyzeLastNBehaviors)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// RecommendHandler godoc
// @Summary 获取用户个性化推荐
// @Description 基于用户MBTI档案与内容向量的余弦相似度生成推荐列表
// @Tags 推荐
// @Produce json
// @Param user_id path int true "用户ID"
// @Param limit query int false "返回数量" default(50)
// @Param content_type query string false "内容类型过滤 article/video/product"
// @Param min_score query number false "相似度阈值" default(0.5)
// @Param exclude_viewed query bool false "排除已交互内容" default(true)
// @Param fresh_days query int false "只推荐N天内发布的内容，0表示不限制" default(30)
// @Success 200 {object} models.RecommendationResponse "成功"
// @Router /api/v1/recommendations/{user_id} [get]
func RecommendHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	userID, ok := utils.ParseID(w, chi.URLParam(r, "user_id"), "user_id")
	if !ok {
		return
	}

	// min_score与fresh_days用-1表示未指定，显式传0仍然有效
	opts := models.RecommendationOptions{
		Limit:               utils.QueryInt(r, "limit", 0),
		ContentType:         r.URL.Query().Get("content_type"),
		SimilarityThreshold: utils.QueryFloat(r, "min_score", -1),
		ExcludeSeen:         utils.QueryBool(r, "exclude_viewed", true),
		FreshDays:           utils.QueryInt(r, "fresh_days", -1),
	}

	list, err := d.Recommendations.RecommendForUser(userID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, list)
}

// SimilarContentHandler godoc
// @Summary 查询相似内容
// @Description 查询与指定内容MBTI向量最相似的内容列表
// @Tags 推荐
// @Produce json
// @Param content_id path int true "内容ID"
// @Param limit query int false "返回数量" default(50)
// @Success 200 {object} models.RecommendationResponse "成功"
// @Failure 400 {object} models.APIResponse "内容不存在"
// @Router /api/v1/recommendations/similar/{content_id} [get]
func SimilarContentHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	contentID, ok := utils.ParseID(w, chi.URLParam(r, "content_id"), "content_id")
	if !ok {
		return
	}

	list, err := d.Recommendations.RecommendSimilar(contentID, utils.QueryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, list)
}

// ContentDetailHandler godoc
// @Summary 获取内容详情
// @Description 获取上游内容详情，include_mbti为true时附带内容MBTI向量
// @Tags 内容
// @Produce json
// @Param content_id path int true "内容ID"
// @Param content_type query string false "内容类型 article/video/product"
// @Param include_mbti query bool false "附带MBTI向量" default(false)
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/v1/content/{content_id} [get]
func ContentDetailHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	contentID, ok := utils.ParseID(w, chi.URLParam(r, "content_id"), "content_id")
	if !ok {
		return
	}

	record, err := d.Content.GetContentByID(contentID, r.URL.Query().Get("content_type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := map[string]interface{}{"content": record}
	if utils.QueryBool(r, "include_mbti", false) {
		if found, _, err := d.Vectors.GetVectors([]int64{contentID}); err == nil {
			if vec, ok := found[contentID]; ok {
				data["mbti"] = map[string]interface{}{
					"probabilities": vec.Probabilities,
					"mbti_type":     vec.Probabilities.DeriveType(),
					"neutral":       vec.Neutral,
					"model_version": vec.ModelVersion,
				}
			}
		}
	}
	utils.WriteSuccessResponse(w, data)
}

// ContentBatchHandler godoc
// @Summary 批量获取内容
// @Description 批量获取内容详情，优先使用本地向量库快照，缺失时回源上游
// @Tags 内容
// @Accept json
// @Produce json
// @Param request body models.BatchContentRequest true "内容ID列表"
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/v1/content/batch [post]
func ContentBatchHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	var req models.BatchContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ContentIDs) == 0 {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{
			"param": "content_ids",
		})
		return
	}

	found, missing, err := d.Vectors.GetVectors(req.ContentIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	contents := make([]map[string]interface{}, 0, len(req.ContentIDs))
	for _, id := range req.ContentIDs {
		vec, ok := found[id]
		if !ok {
			continue
		}
		item := map[string]interface{}{"content": vec.Record}
		if req.IncludeMBTI {
			item["probabilities"] = vec.Probabilities
			item["mbti_type"] = vec.Probabilities.DeriveType()
		}
		contents = append(contents, item)
	}

	// 本地没有快照的内容回源上游，失败的记入missing_ids
	stillMissing := make([]int64, 0)
	if len(missing) > 0 {
		records, err := d.Content.GetContentsBatch(missing)
		if err == nil {
			fetched := make(map[int64]bool)
			for _, record := range records {
				fetched[record.ID] = true
				contents = append(contents, map[string]interface{}{"content": record})
			}
			for _, id := range missing {
				if !fetched[id] {
					stillMissing = append(stillMissing, id)
				}
			}
		} else {
			stillMissing = missing
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"contents":        contents,
		"total_requested": len(req.ContentIDs),
		"total_found":     len(contents),
		"missing_ids":     stillMissing,
	})
}

// EvaluateContentHandler godoc
// @Summary 评价内容MBTI维度
// @Description 管理接口：调用LLM对一段内容文本做MBTI八维度评价
// @Tags 管理
// @Accept json
// @Produce json
// @Param request body models.ContentEvaluateRequest true "内容文本"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 500 {object} models.APIResponse "LLM调用失败"
// @Router /api/v1/admin/content/evaluate [post]
func EvaluateContentHandler(w http.ResponseWriter, r *http.Request, d *Deps) {
	var req models.ContentEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{"error": err.Error()})
		return
	}

	text := utils.CleanContent(req.Title + "\n" + req.Content)
	if text == "" {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"required": []string{"title", "content"},
		})
		return
	}

	probs, err := d.Analyzer.EvaluateContent(text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"probabilities": probs,
		"mbti_type":     probs.DeriveType(),
		"confidence":    probs.ConfidenceScores(),
	})
}

// HealthHandler godoc
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := db.DB.Ping(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func RegisterRoutes(r *chi.Mux, d *Deps) {
	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))

	r.Get("/health", HealthHandler)

	r.Post("/api/v1/behavior/record", func(w http.ResponseWriter, r *http.Request) {
		RecordBehaviorHandler(w, r, d)
	})
	r.Get("/api/v1/behavior/history/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		BehaviorHistoryHandler(w, r, d)
	})
	r.Get("/api/v1/behavior/stats/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		BehaviorStatsHandler(w, r, d)
	})

	r.Get("/api/v1/mbti/profile/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		GetProfileHandler(w, r, d)
	})
	r.Post("/api/v1/mbti/update/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		UpdateProfileHandler(w, r, d)
	})

	r.Get("/api/v1/recommendations/similar/{content_id}", func(w http.ResponseWriter, r *http.Request) {
		SimilarContentHandler(w, r, d)
	})
	r.Get("/api/v1/recommendations/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		RecommendHandler(w, r, d)
	})

	r.Get("/api/v1/content/{content_id}", func(w http.ResponseWriter, r *http.Request) {
		ContentDetailHandler(w, r, d)
	})
	r.Post("/api/v1/content/batch", func(w http.ResponseWriter, r *http.Request) {
		ContentBatchHandler(w, r, d)
	})

	r.Post("/api/v1/admin/content/evaluate", func(w http.ResponseWriter, r *http.Request) {
		EvaluateContentHandler(w, r, d)
	})
}
