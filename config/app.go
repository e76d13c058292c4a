package config

import "time"

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`                       // 监听地址
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`         // 读超时
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`       // 写超时
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"` // 优雅退出等待时间
}

// DefaultServerConfig 返回本地开发的默认配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ValidationConfig 资料校验边界
// 说明：历史上名称/年龄边界在不同版本间反复调整过，统一收敛为配置项，不再散落硬编码。
type ValidationConfig struct {
	DisplayNameMaxLen int `json:"displayNameMaxLen" yaml:"displayNameMaxLen"` // 昵称最大长度
	AgeMin            int `json:"ageMin" yaml:"ageMin"`                       // 最小年龄
	AgeMax            int `json:"ageMax" yaml:"ageMax"`                       // 最大年龄
	BioMaxLen         int `json:"bioMaxLen" yaml:"bioMaxLen"`                 // 简介最大长度
	MaxProfilePhotos  int `json:"maxProfilePhotos" yaml:"maxProfilePhotos"`   // 资料照片上限（槽位 0..N-1）
}

// DefaultValidationConfig 返回默认校验边界
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		DisplayNameMaxLen: 50,
		AgeMin:            13,
		AgeMax:            120,
		BioMaxLen:         200,
		MaxProfilePhotos:  3,
	}
}

// ConnectionConfig 连接请求（打招呼）配置
type ConnectionConfig struct {
	// 同一发送方向同一接收方重复打招呼的冷却窗口
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// DefaultConnectionConfig 返回默认配置
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Cooldown: 30 * time.Second,
	}
}

// SweepConfig 后台清理任务配置
type SweepConfig struct {
	Interval       time.Duration `json:"interval" yaml:"interval"`             // 扫描周期
	InactiveCutoff time.Duration `json:"inactiveCutoff" yaml:"inactiveCutoff"` // 超过该时长未活跃则清除位置
}

// DefaultSweepConfig 返回默认配置
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval:       24 * time.Hour,
		InactiveCutoff: 90 * 24 * time.Hour,
	}
}

// AppConfig 进程级配置汇总
type AppConfig struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Logger     LoggerConfig     `json:"logger" yaml:"logger"`
	MySQL      MySQLConfig      `json:"mysql" yaml:"mysql"`
	Redis      RedisConfig      `json:"redis" yaml:"redis"`
	Kafka      KafkaConfig      `json:"kafka" yaml:"kafka"`
	MinIO      MinIOConfig      `json:"minio" yaml:"minio"`
	JWT        JWTConfig        `json:"jwt" yaml:"jwt"`
	Telegram   TelegramConfig   `json:"telegram" yaml:"telegram"`
	Async      AsyncConfig      `json:"async" yaml:"async"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
}

// DefaultAppConfig 返回本地开发的默认配置
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server:     DefaultServerConfig(),
		Logger:     DefaultLoggerConfig(),
		MySQL:      DefaultMySQLConfig(),
		Redis:      DefaultRedisConfig(),
		Kafka:      DefaultKafkaConfig(),
		MinIO:      DefaultMinIOConfig(),
		JWT:        DefaultJWTConfig(),
		Telegram:   DefaultTelegramConfig(),
		Async:      DefaultAsyncConfig(),
		Validation: DefaultValidationConfig(),
		Connection: DefaultConnectionConfig(),
		Sweep:      DefaultSweepConfig(),
	}
}
