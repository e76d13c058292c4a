package config

import (
	"fmt"
	"time"
)

// MySQLConfig MySQL 连接配置
type MySQLConfig struct {
	// 连接配置
	Host     string `json:"host" yaml:"host"`         // 主库地址
	Port     int    `json:"port" yaml:"port"`         // 主库端口
	User     string `json:"user" yaml:"user"`         // 用户名
	Password string `json:"password" yaml:"password"` // 密码
	Database string `json:"database" yaml:"database"` // 库名
	Charset  string `json:"charset" yaml:"charset"`   // 字符集

	// 只读副本（可选，配置后通过 dbresolver 做读写分离）
	ReplicaDSNs []string `json:"replicaDsns" yaml:"replicaDsns"`

	// 连接池配置
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`       // 最大打开连接数
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`       // 最大空闲连接数
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"` // 连接最大存活时间

	// 行为配置
	SlowThreshold time.Duration `json:"slowThreshold" yaml:"slowThreshold"` // 慢 SQL 阈值
	AutoMigrate   bool          `json:"autoMigrate" yaml:"autoMigrate"`     // 启动时自动建表（仅开发环境）
}

// DSN 拼接主库 DSN
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// DefaultMySQLConfig 返回本地开发的默认配置
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Host:     "mysql",
		Port:     3306,
		User:     "meetserver",
		Password: "meetserver",
		Database: "meetserver",
		Charset:  "utf8mb4",

		MaxOpenConns:    100,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,

		SlowThreshold: 200 * time.Millisecond,
		AutoMigrate:   true,
	}
}
