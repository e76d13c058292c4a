package mysql

import (
	"fmt"
	"log"
	"os"
	"time"

	"MeetServer/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var global *gorm.DB

// DB 返回全局数据库实例（未初始化时为 nil）
func DB() *gorm.DB {
	return global
}

// ReplaceGlobal 设置全局数据库实例
func ReplaceGlobal(db *gorm.DB) {
	global = db
}

// Build 根据配置创建 gorm 实例。
// - TranslateError 开启后，唯一键冲突统一映射为 gorm.ErrDuplicatedKey，
//   仓储层依赖该行为做"并发插入视为已存在"的判断。
// - 配置了只读副本时通过 dbresolver 做读写分离（写主读从）。
func Build(cfg config.MySQLConfig) (*gorm.DB, error) {
	slowThreshold := cfg.SlowThreshold
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			log.New(os.Stdout, "", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             slowThreshold,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	// 只读副本（可选）
	if len(cfg.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaDSNs))
		for _, dsn := range cfg.ReplicaDSNs {
			replicas = append(replicas, mysql.Open(dsn))
		}
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to register dbresolver: %w", err)
		}
	}

	// 连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}
