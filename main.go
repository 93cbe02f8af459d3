package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"mbti_recommender/config"
	"mbti_recommender/db"
	_ "mbti_recommender/docs" // 导入 swagger 文档
	"mbti_recommender/handlers"
	"mbti_recommender/logger"
	"mbti_recommender/repository"
	"mbti_recommender/scheduler"
	"mbti_recommender/services"
)

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	if err := db.InitMySQLWithConfig(cfg); err != nil {
		logger.Error("初始化MySQL失败", "error", err)
		os.Exit(1)
	}
	logger.Info("MySQL连接成功",
		"max_open_conns", cfg.DB.MaxOpenConns,
		"max_idle_conns", cfg.DB.MaxIdleConns,
		"conn_max_lifetime", cfg.DB.ConnMaxLifetime)

	// 存储层
	store := repository.NewProfileStore()
	vectors := repository.NewContentVectorStore()
	recommendLogs := repository.NewRecommendationLogStore()

	// 服务层
	cache := services.NewMemoryCache()
	analyzer := services.NewAnalyzerService(cfg)
	content := services.NewSohuContentService(cfg)
	profiles := services.NewProfileService(cfg, store, vectors, cache)
	behaviors := services.NewBehaviorService(cfg, store, content, vectors, analyzer, profiles)
	recommendations := services.NewRecommendationService(cfg, store, vectors, profiles, cache, recommendLogs)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	handlers.RegisterRoutes(r, &handlers.Deps{
		Cfg:             cfg,
		Behaviors:       behaviors,
		Profiles:        profiles,
		Recommendations: recommendations,
		Store:           store,
		Content:         content,
		Vectors:         vectors,
		Analyzer:        analyzer,
	})

	// 启动定时任务：到期档案更新 + 上游内容同步
	scheduler.Start(cfg, &scheduler.Deps{
		Profiles: profiles,
		Analyzer: analyzer,
		Content:  content,
		Vectors:  vectors,
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("服务器启动", "address", serverAddr)
	logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port), r))
}
