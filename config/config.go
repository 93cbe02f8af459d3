package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Addr string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
	} `yaml:"server"`
	SiliconFlow struct {
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSec     int    `yaml:"timeout_sec"`     // 请求超时时间,单位:秒
		MaxConcurrency int    `yaml:"max_concurrency"` // 批量评价并发数
	} `yaml:"siliconflow"`
	SohuAPI struct {
		BaseURL       string `yaml:"base_url"`
		LoginPhone    string `yaml:"login_phone"`
		LoginPassword string `yaml:"login_password"`
		TimeoutSec    int    `yaml:"timeout_sec"`
		SiteID        int    `yaml:"site_id"`
		PageSize      int    `yaml:"page_size"` // 分页拉取每页数量
	} `yaml:"sohu_api"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		ParseTime       bool   `yaml:"parse_time"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	Behavior struct {
		// MBTI档案更新规则
		UpdateThreshold   int     `yaml:"update_threshold"`    // 触发自动更新的行为数量阈值
		MinBehaviors      int     `yaml:"min_behaviors"`       // 分析所需的最小行为数量
		MaxWindow         int     `yaml:"max_window"`          // 分析窗口上限
		HistoryWeight     float64 `yaml:"history_weight"`      // 历史档案权重
		NewAnalysisWeight float64 `yaml:"new_analysis_weight"` // 新观测权重
	} `yaml:"behavior"`
	Recommendation struct {
		DefaultLimit     int     `yaml:"default_limit"`
		MaxLimit         int     `yaml:"max_limit"`
		DefaultThreshold float64 `yaml:"default_threshold"`
		DefaultFreshDays int     `yaml:"default_fresh_days"`
		CacheTTLSec      int     `yaml:"cache_ttl_sec"`   // 推荐结果缓存TTL，单位：秒
		CandidateLimit   int     `yaml:"candidate_limit"` // 候选池大小
	} `yaml:"recommendation"`
	Scheduler struct {
		CheckIntervalSec int `yaml:"check_interval_sec"` // 调度器检查间隔（秒）
		Concurrency      int `yaml:"concurrency"`        // 档案更新并发数
		ContentSyncSec   int `yaml:"content_sync_sec"`   // 内容同步间隔（秒）
		ContentSyncPages int `yaml:"content_sync_pages"` // 每次同步拉取的页数上限
	} `yaml:"scheduler"`
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	var cfg Config

	// 尝试从config.yaml文件加载配置
	if data, err := os.ReadFile("config.yaml"); err == nil {
		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			log.Printf("Error loading config.yaml: %v, falling back to environment variables", err)
			return loadFromEnv()
		}
		log.Println("Loading configuration from config.yaml")

		// 计算 Server.Addr 字段
		cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

		// 从环境变量中加载敏感信息
		// 数据库用户名和密码
		if envUsername := os.Getenv("DATABASE_USERNAME"); envUsername != "" {
			cfg.DB.Username = envUsername
		}
		if envPassword := os.Getenv("DATABASE_PASSWORD"); envPassword != "" {
			cfg.DB.Password = envPassword
		}

		// SiliconFlow API密钥
		if envAPIKey := os.Getenv("SILICONFLOW_API_KEY"); envAPIKey != "" {
			cfg.SiliconFlow.APIKey = envAPIKey
		}

		// 上游平台登录凭证
		if envPassword := os.Getenv("SOHU_LOGIN_PASSWORD"); envPassword != "" {
			cfg.SohuAPI.LoginPassword = envPassword
		}

		// 计算 DB.DSN 字段
		if cfg.DB.DSN == "" {
			// 设置默认值
			if cfg.DB.Charset == "" {
				cfg.DB.Charset = "utf8mb4"
			}

			// 构建DSN
			parseTime := ""
			if cfg.DB.ParseTime {
				parseTime = "&parseTime=true"
			}

			cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s%s",
				cfg.DB.Username,
				cfg.DB.Password,
				cfg.DB.Host,
				cfg.DB.Port,
				cfg.DB.Database,
				cfg.DB.Charset,
				parseTime)
		}

		applyDefaults(&cfg)
		return &cfg
	}

	// 如果config.yaml不存在，则完全从环境变量加载配置
	return loadFromEnv()
}

// applyDefaults 对未配置的算法参数填充默认值
func applyDefaults(cfg *Config) {
	if cfg.Behavior.UpdateThreshold <= 0 {
		cfg.Behavior.UpdateThreshold = 50
	}
	if cfg.Behavior.MinBehaviors <= 0 {
		cfg.Behavior.MinBehaviors = 10
	}
	if cfg.Behavior.MaxWindow <= 0 {
		cfg.Behavior.MaxWindow = 200
	}
	if cfg.Behavior.HistoryWeight <= 0 {
		cfg.Behavior.HistoryWeight = 0.7
	}
	if cfg.Behavior.NewAnalysisWeight <= 0 {
		cfg.Behavior.NewAnalysisWeight = 0.3
	}
	if cfg.Recommendation.DefaultLimit <= 0 {
		cfg.Recommendation.DefaultLimit = 50
	}
	if cfg.Recommendation.MaxLimit <= 0 {
		cfg.Recommendation.MaxLimit = 100
	}
	if cfg.Recommendation.DefaultThreshold <= 0 {
		cfg.Recommendation.DefaultThreshold = 0.5
	}
	if cfg.Recommendation.DefaultFreshDays <= 0 {
		cfg.Recommendation.DefaultFreshDays = 30
	}
	if cfg.Recommendation.CacheTTLSec <= 0 {
		cfg.Recommendation.CacheTTLSec = 1800 // 30分钟
	}
	if cfg.Recommendation.CandidateLimit <= 0 {
		cfg.Recommendation.CandidateLimit = 1000
	}
	if cfg.SohuAPI.PageSize <= 0 {
		cfg.SohuAPI.PageSize = 50
	}
	if cfg.SohuAPI.SiteID <= 0 {
		cfg.SohuAPI.SiteID = 11
	}
	if cfg.Scheduler.CheckIntervalSec <= 0 {
		cfg.Scheduler.CheckIntervalSec = 300
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 5
	}
	if cfg.Scheduler.ContentSyncSec <= 0 {
		cfg.Scheduler.ContentSyncSec = 3600
	}
	if cfg.Scheduler.ContentSyncPages <= 0 {
		cfg.Scheduler.ContentSyncPages = 5
	}
	if cfg.SiliconFlow.MaxConcurrency <= 0 {
		cfg.SiliconFlow.MaxConcurrency = 3
	}
}

func loadFromEnv() *Config {
	// 当config.yaml加载失败时，创建一个最小配置
	var cfg Config

	// 设置服务器地址
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

	// 只从环境变量中加载敏感信息
	// 数据库配置
	if username := os.Getenv("DATABASE_USERNAME"); username != "" {
		cfg.DB.Username = username
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}

	// SiliconFlow API密钥
	if apiKey := os.Getenv("SILICONFLOW_API_KEY"); apiKey != "" {
		cfg.SiliconFlow.APIKey = apiKey
	}

	// 上游平台登录凭证
	if password := os.Getenv("SOHU_LOGIN_PASSWORD"); password != "" {
		cfg.SohuAPI.LoginPassword = password
	}

	applyDefaults(&cfg)
	log.Println("配置从环境变量加载，部分配置可能缺失")
	return &cfg
}
