package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"MeetServer/apps/api/internal/bot"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/apps/api/internal/router"
	v1 "MeetServer/apps/api/internal/router/v1"
	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/storage"
	"MeetServer/apps/api/internal/sweeper"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/apps/api/internal/ws"
	"MeetServer/apps/api/mq"
	"MeetServer/config"
	"MeetServer/model"
	"MeetServer/pkg/async"
	"MeetServer/pkg/idgen"
	pkgkafka "MeetServer/pkg/kafka"
	"MeetServer/pkg/logger"
	pkgminio "MeetServer/pkg/minio"
	"MeetServer/pkg/mysql"
	pkgredis "MeetServer/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，留空则查找工作目录下的 config.yaml")
	nodeID := flag.Int64("node", 1, "雪花算法节点 ID")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zl, err := logger.Build(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger.ReplaceGlobal(zl)
	defer zl.Sync()

	// 3. JWT 签名配置
	utils.InitJWT(cfg.JWT)

	// 4. 初始化 MySQL
	db, err := mysql.Build(cfg.MySQL)
	if err != nil {
		log.Fatalf("初始化 MySQL 失败: %v", err)
	}
	mysql.ReplaceGlobal(db)

	if cfg.MySQL.AutoMigrate {
		if err := db.AutoMigrate(
			&model.UserProfile{},
			&model.ProfilePhoto{},
			&model.Connection{},
			&model.ChatSession{},
			&model.ChatMessage{},
		); err != nil {
			log.Fatalf("自动建表失败: %v", err)
		}
	}

	// 5. 初始化 Redis（失败降级：冷却/缓存走 DB 兜底，限流走本地令牌桶）
	redisClient, err := pkgredis.Build(cfg.Redis)
	if err != nil {
		logger.Warn(ctx, "Redis 初始化失败，降级到 MySQL-Only 模式",
			logger.ErrorField("error", err),
		)
		redisClient = nil
	} else {
		pkgredis.ReplaceGlobal(redisClient)
		logger.Info(ctx, "Redis 初始化成功", logger.String("addr", cfg.Redis.Addr))
	}

	// 6. 初始化 MinIO（头像/照片存储，必须可用）
	minioClient, err := pkgminio.Build(cfg.MinIO)
	if err != nil {
		log.Fatalf("初始化 MinIO 失败: %v", err)
	}
	pkgminio.ReplaceGlobal(minioClient)

	// 7. 初始化 Kafka（孤儿图片删除重试链路，可选）
	if len(cfg.Kafka.Brokers) > 0 {
		writer := pkgkafka.BuildWriter(cfg.Kafka)
		pkgkafka.ReplaceGlobalWriter(writer)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error(ctx, "关闭 Kafka Producer 失败", logger.ErrorField("error", err))
			}
		}()

		reader := pkgkafka.BuildReader(cfg.Kafka)
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error(ctx, "关闭 Kafka Consumer 失败", logger.ErrorField("error", err))
			}
		}()

		consumer := mq.NewBlobRetryConsumer(reader, minioClient)
		go func() {
			logger.Info(ctx, "图片删除重试消费者启动",
				logger.String("topic", cfg.Kafka.BlobRetryTopic),
				logger.String("group_id", cfg.Kafka.ConsumerConfig.GroupID),
			)
			consumer.Run(ctx)
		}()
	} else {
		logger.Warn(ctx, "未配置 Kafka，图片删除失败将不会重试")
	}

	// 8. 异步池与 ID 生成器
	if err := async.Init(cfg.Async); err != nil {
		log.Fatalf("初始化异步池失败: %v", err)
	}
	defer async.Release()
	async.SetContextPropagator(propagateIdentity)

	node, err := idgen.Build(*nodeID)
	if err != nil {
		log.Fatalf("初始化雪花节点失败: %v", err)
	}
	idgen.ReplaceGlobal(node)

	// 9. 组装依赖 - Repository 层
	userRepo := repository.NewUserRepository(db, redisClient)
	connRepo := repository.NewConnectionRepository(db, redisClient)
	chatRepo := repository.NewChatRepository(db, redisClient)

	// 10. 组装依赖 - Service 层
	blobStore := storage.NewBlobStore(minioClient)
	authService := service.NewAuthService(userRepo, cfg.Telegram)
	userService := service.NewUserService(userRepo, blobStore, cfg.Validation)

	// WebSocket 管理器同时是在线消息推送器
	wsManager := ws.NewManager()
	chatService := service.NewChatService(chatRepo, userRepo, wsManager)

	// 机器人构造依赖连接服务，通知器在机器人就绪后回填
	connectionService := service.NewConnectionService(connRepo, userRepo, chatRepo, nil, cfg.Connection)

	// 11. Telegram 机器人（可选）
	if cfg.Telegram.Enabled {
		tgBot, err := bot.New(cfg.Telegram, userService, connectionService)
		if err != nil {
			log.Fatalf("初始化 Telegram 机器人失败: %v", err)
		}
		connectionService.SetNotifier(tgBot)
		go tgBot.Run(ctx)
		logger.Info(ctx, "Telegram 机器人已启动")
	} else {
		logger.Warn(ctx, "Telegram 机器人未启用，连接通知将静默跳过")
	}

	// 12. 位置清理后台任务
	sw, err := sweeper.New(userRepo, cfg.Sweep)
	if err != nil {
		log.Fatalf("初始化位置清理任务失败: %v", err)
	}
	if err := sw.Start(); err != nil {
		log.Fatalf("启动位置清理任务失败: %v", err)
	}

	// 13. 组装依赖 - Handler 层与路由
	wsHandler := ws.NewHandler(wsManager, chatService)
	engine := router.InitRouter(&router.Handlers{
		Auth:       v1.NewAuthHandler(authService),
		User:       v1.NewUserHandler(userService),
		Connection: v1.NewConnectionHandler(connectionService),
		Chat:       v1.NewChatHandler(chatService),
		WS:         wsHandler.ServeWS,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "HTTP 服务启动", logger.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "HTTP 服务异常退出", logger.ErrorField("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "收到退出信号，开始优雅关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP 服务关闭失败", logger.ErrorField("error", err))
	}

	if err := sw.Stop(); err != nil {
		logger.Error(shutdownCtx, "位置清理任务关闭失败", logger.ErrorField("error", err))
	}
	wsManager.Shutdown()

	logger.Info(context.Background(), "服务已退出")
}

// propagateIdentity 异步任务透传请求身份与追踪字段
func propagateIdentity(parent context.Context) context.Context {
	ctx := context.Background()
	for _, key := range []string{"trace_id", "telegram_id", "user_uuid", "client_ip"} {
		if v := parent.Value(key); v != nil {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	return ctx
}
