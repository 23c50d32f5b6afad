package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	Admin     AdminConfig     `mapstructure:"admin"`
	OSS       OSSConfig       `mapstructure:"oss"`
	Wechat    WechatPayConfig `mapstructure:"wechat"`
	Kuaidi    KuaidiConfig    `mapstructure:"kuaidi"`
	AfterSale AfterSaleConfig `mapstructure:"after_sale"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// AdminConfig 管理后台账号（只有一个内置管理员）
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
}

// WechatPayConfig 微信支付 v2 统一下单配置
type WechatPayConfig struct {
	AppID     string `mapstructure:"app_id"`
	MchID     string `mapstructure:"mch_id"`
	APIKey    string `mapstructure:"api_key"`    // 商户 API 密钥（32位）
	AppSecret string `mapstructure:"app_secret"` // 小程序密钥（jscode2session 用）
	NotifyURL string `mapstructure:"notify_url"`
	// 开发联调时强制把下单金额固定为 1 分，默认关闭
	ForceTestFee bool `mapstructure:"force_test_fee"`
	// 统一下单接口地址，测试时可指向本地 mock
	UnifiedOrderURL string `mapstructure:"unified_order_url"`
	// jscode2session 接口地址
	AuthURL string `mapstructure:"auth_url"`
}

// KuaidiConfig 快递100 查询配置
type KuaidiConfig struct {
	Customer string `mapstructure:"customer"`
	Key      string `mapstructure:"key"`
	QueryURL string `mapstructure:"query_url"`
	AutoURL  string `mapstructure:"auto_url"`
}

// AfterSaleConfig 售后配置
type AfterSaleConfig struct {
	WindowDays int `mapstructure:"window_days"` // 支付后可申请售后的天数
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin credentials are required")
	}

	// 微信支付配置要么全有要么全无：缺一项直接启动失败，避免运行期才报错
	if c.Wechat.AppID != "" || c.Wechat.MchID != "" {
		if c.Wechat.AppID == "" || c.Wechat.MchID == "" || c.Wechat.APIKey == "" ||
			c.Wechat.AppSecret == "" || c.Wechat.NotifyURL == "" {
			return errors.New("wechat pay configuration is incomplete: need app_id, mch_id, api_key, app_secret, notify_url")
		}
	}

	if c.AfterSale.WindowDays <= 0 {
		return errors.New("after_sale.window_days must be positive")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("after_sale.window_days", 7)
	viper.SetDefault("wechat.unified_order_url", "https://api.mch.weixin.qq.com/pay/unifiedorder")
	viper.SetDefault("wechat.auth_url", "https://api.weixin.qq.com/sns/jscode2session")
	viper.SetDefault("kuaidi.query_url", "https://poll.kuaidi100.com/poll/query.do")
	viper.SetDefault("kuaidi.auto_url", "https://www.kuaidi100.com/autonumber/auto")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		GlobalConfig.JWT.Secret = jwtSecret
	}
	if apiKey := os.Getenv("WECHAT_API_KEY"); apiKey != "" {
		GlobalConfig.Wechat.APIKey = apiKey
	}
	if appSecret := os.Getenv("WECHAT_APP_SECRET"); appSecret != "" {
		GlobalConfig.Wechat.AppSecret = appSecret
	}

	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
