package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Elastic  ElasticConfig
	AI       AIConfig
	Chat     ChatConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置（本地 SQLite 文件）
type DatabaseConfig struct {
	Path string
}

// RedisConfig Redis配置（可选，用于会话持久化）
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ElasticConfig Elasticsearch配置
type ElasticConfig struct {
	Host     string
	Username string
	Password string
}

// AIConfig 对话模型配置
type AIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    int
	Deployment string
}

// ChatConfig 聊天子进程配置
type ChatConfig struct {
	BinPath   string
	PortStart int
	PortRange int
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("CHATBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Status 配置状态：返回是否完整及缺失项清单（不含取值）
func (c *Config) Status() (bool, []string) {
	missing := []string{}

	if c.Storage.Endpoint == "" {
		missing = append(missing, "CHATBOT_STORAGE_ENDPOINT")
	}
	if c.Storage.AccessKey == "" {
		missing = append(missing, "CHATBOT_STORAGE_ACCESSKEY")
	}
	if c.Storage.SecretKey == "" {
		missing = append(missing, "CHATBOT_STORAGE_SECRETKEY")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "CHATBOT_STORAGE_BUCKET")
	}
	if c.Elastic.Host == "" {
		missing = append(missing, "CHATBOT_ELASTIC_HOST")
	}
	if c.AI.APIKey == "" {
		missing = append(missing, "CHATBOT_AI_APIKEY")
	}
	if c.AI.Model == "" {
		missing = append(missing, "CHATBOT_AI_MODEL")
	}

	return len(missing) == 0, missing
}

// StorageConfigured 对象存储配置是否齐全
func (c *Config) StorageConfigured() bool {
	return c.Storage.Endpoint != "" && c.Storage.AccessKey != "" &&
		c.Storage.SecretKey != "" && c.Storage.Bucket != ""
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "chatbot-admin")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.path", "./chatbots.db")

	// Redis
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage。空默认保证环境变量覆盖对 Unmarshal 生效
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.useSSL", false)

	// Elastic
	v.SetDefault("elastic.host", "")
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")

	// AI
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.baseUrl", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.timeout", 60)
	v.SetDefault("ai.deployment", "")

	// Chat 子进程
	v.SetDefault("chat.binPath", "./chatbot-chat")
	v.SetDefault("chat.portStart", 8502)
	v.SetDefault("chat.portRange", 100)
}
