package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	Port               string
	DBDriver           string // mysql 或 memory
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	JWTSecret          string
	LogLevel           string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	FrontendURL        string
	BackendURL         string
	StorageDriver      string // local, s3 或 gcs
	S3Region           string
	S3Bucket           string
	GCSProjectID       string
	GCSBucketName      string
	GCSCredentialsFile string
	LocalStoragePath   string

	// 连接请求限流
	ConnectionRequestLimit  int
	ConnectionRequestWindow time.Duration

	EventQueueSize int
	Debug          bool // 是否开启调试模式
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	AppConfig = Load()

	validateConfig()

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。存储驱动：%s，数据库：%s:%s", AppConfig.DBDriver, AppConfig.DBHost, AppConfig.DBPort)
}

// Load 从环境变量中读取配置，不做校验
func Load() Config {
	return Config{
		Port:                    getEnv("PORT", "8080"),
		DBDriver:                getEnv("DB_DRIVER", "mysql"),
		DBHost:                  getEnv("DB_HOST", ""),
		DBPort:                  getEnv("DB_PORT", "3306"),
		DBUser:                  getEnv("DB_USER", ""),
		DBPassword:              getEnv("DB_PASSWORD", ""),
		DBName:                  getEnv("DB_NAME", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:              getEnv("BACKEND_URL", "http://localhost:8080"),
		StorageDriver:           getEnv("STORAGE_DRIVER", "local"),
		S3Region:                getEnv("S3_REGION", "us-west-2"),
		S3Bucket:                getEnv("S3_BUCKET", ""),
		GCSProjectID:            getEnv("GCS_PROJECT_ID", ""),
		GCSBucketName:           getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile:      getEnv("GCS_CREDENTIALS_FILE", ""),
		LocalStoragePath:        getEnv("LOCAL_STORAGE_PATH", "./uploads"),
		ConnectionRequestLimit:  getEnvAsInt("CONNECTION_REQUEST_LIMIT", 20),
		ConnectionRequestWindow: getEnvAsDuration("CONNECTION_REQUEST_WINDOW", 24*time.Hour),
		EventQueueSize:          getEnvAsInt("EVENT_QUEUE_SIZE", 256),
		Debug:                   getEnvAsBool("DEBUG", false),
	}
}

// SMTPEnabled 判断是否配置了邮件发送
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil && val > 0 {
		return val
	}
	return defaultVal
}

func validateConfig() {
	if AppConfig.DBDriver == "mysql" {
		if AppConfig.DBHost == "" || AppConfig.DBUser == "" || AppConfig.DBPassword == "" || AppConfig.DBName == "" {
			log.Fatal("错误：数据库配置不完整")
		}
	}
	if AppConfig.JWTSecret == "" {
		log.Fatal("错误：JWT密钥未设置")
	}
	if AppConfig.ConnectionRequestLimit <= 0 {
		log.Fatal("错误：CONNECTION_REQUEST_LIMIT 必须大于 0")
	}
	switch AppConfig.StorageDriver {
	case "local", "s3", "gcs":
	default:
		log.Fatalf("错误：未知的存储驱动 %q", AppConfig.StorageDriver)
	}
}
