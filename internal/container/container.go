package container

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/api"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/config"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/database"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/directory"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/metrics"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/notify"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/service"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// Container 依赖注入容器,集中装配全部组件
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *gorm.DB

	// 仓储
	DefinitionRepo repository.DefinitionRepository
	InstanceRepo   repository.InstanceRepository
	TaskRepo       repository.TaskRepository
	ApprovalRepo   repository.ApprovalRepository
	AuditLogRepo   repository.AuditLogRepository

	// 引擎与服务
	Engine      *workflow.Engine
	WorkflowSvc service.WorkflowService
	QuerySvc    service.QueryService
	AuditLogSvc service.AuditLogService

	// 基础设施
	Notifier         *notify.WebhookNotifier
	MetricsCollector *metrics.Collector

	// 控制器
	Router *api.Router
}

// NewContainer 创建并装配容器
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 连接数据库并迁移
	db, err := database.ConnectWithRetry(cfg.Database, 5, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 仓储
	definitionRepo := repository.NewDefinitionRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// 3. 通知器,未配置 webhook 时退化为空实现
	var notifier workflow.Notifier = workflow.NopNotifier{}
	var webhookNotifier *notify.WebhookNotifier
	if cfg.Webhook.URL != "" {
		webhookNotifier = notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Workers, cfg.Webhook.QueueSize, logger)
		notifier = webhookNotifier
	}

	// 4. 引擎与服务
	engine := workflow.NewEngine(db, directory.NewGormDirectory(db), notifier, logger)
	auditLogSvc := service.NewAuditLogService(auditLogRepo)
	workflowSvc := service.NewWorkflowService(engine, definitionRepo, taskRepo, auditLogSvc, logger)
	querySvc := service.NewQueryService(instanceRepo, taskRepo, approvalRepo)

	// 5. 控制器与路由
	router := api.NewRouter(
		api.NewDefinitionController(workflowSvc, definitionRepo),
		api.NewWorkflowController(workflowSvc, querySvc),
		api.NewTaskController(workflowSvc, querySvc),
		api.NewHealthController(db),
		logger,
		cfg,
	)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		DB:               db,
		DefinitionRepo:   definitionRepo,
		InstanceRepo:     instanceRepo,
		TaskRepo:         taskRepo,
		ApprovalRepo:     approvalRepo,
		AuditLogRepo:     auditLogRepo,
		Engine:           engine,
		WorkflowSvc:      workflowSvc,
		QuerySvc:         querySvc,
		AuditLogSvc:      auditLogSvc,
		Notifier:         webhookNotifier,
		MetricsCollector: metrics.NewCollector(db, 30*time.Second),
		Router:           router,
	}, nil
}

// Close 释放容器持有的资源
func (c *Container) Close() error {
	if c.MetricsCollector != nil {
		c.MetricsCollector.Stop()
	}
	if c.Notifier != nil {
		c.Notifier.Close()
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
