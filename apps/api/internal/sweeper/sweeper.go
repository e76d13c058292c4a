package sweeper

import (
	"context"
	"fmt"
	"time"

	"MeetServer/apps/api/internal/repository"
	"MeetServer/config"
	"MeetServer/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper 位置清理调度器
// 定期抹掉长期不活跃用户的坐标，保证下线用户不会一直留在附近列表里。
type Sweeper struct {
	userRepo  repository.IUserRepository
	cfg       config.SweepConfig
	scheduler gocron.Scheduler
}

// New 创建位置清理调度器
func New(userRepo repository.IUserRepository, cfg config.SweepConfig) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("创建调度器失败: %w", err)
	}
	return &Sweeper{
		userRepo:  userRepo,
		cfg:       cfg,
		scheduler: scheduler,
	}, nil
}

// Start 注册清理任务并启动调度器
func (s *Sweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.sweepOnce),
		gocron.WithName("location-sweep"),
	)
	if err != nil {
		return fmt.Errorf("注册位置清理任务失败: %w", err)
	}

	s.scheduler.Start()
	logger.Info(context.Background(), "位置清理任务启动",
		logger.Duration("interval", s.cfg.Interval),
		logger.Duration("inactive_cutoff", s.cfg.InactiveCutoff),
	)
	return nil
}

// Stop 优雅停止调度器
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

// sweepOnce 清理一轮：抹掉 cutoff 之前没有活跃过的用户坐标
func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.InactiveCutoff)
	cleared, err := s.userRepo.ClearStaleLocations(ctx, cutoff)
	if err != nil {
		logger.Error(ctx, "位置清理失败", logger.ErrorField("error", err))
		return
	}
	if cleared > 0 {
		logger.Info(ctx, "位置清理完成",
			logger.Int64("cleared", cleared),
			logger.Time("cutoff", cutoff),
		)
	}
}
