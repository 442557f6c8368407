package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/auth"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/config"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/metrics"
)

// Router 路由装配
type Router struct {
	definitionCtrl *DefinitionController
	workflowCtrl   *WorkflowController
	taskCtrl       *TaskController
	healthCtrl     *HealthController
	logger         *logrus.Logger
	cfg            *config.Config
}

// NewRouter 创建路由装配器
func NewRouter(
	definitionCtrl *DefinitionController,
	workflowCtrl *WorkflowController,
	taskCtrl *TaskController,
	healthCtrl *HealthController,
	logger *logrus.Logger,
	cfg *config.Config,
) *Router {
	return &Router{
		definitionCtrl: definitionCtrl,
		workflowCtrl:   workflowCtrl,
		taskCtrl:       taskCtrl,
		healthCtrl:     healthCtrl,
		logger:         logger,
		cfg:            cfg,
	}
}

// Setup 装配全部路由
func (r *Router) Setup() *gin.Engine {
	if config.IsProduction(r.cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(RequestLogMiddleware(r.logger))

	// 运维端点不鉴权
	engine.GET("/health", r.healthCtrl.Health)
	engine.GET("/ready", r.healthCtrl.Ready)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := engine.Group("/api/v1/workflow")
	v1.Use(RateLimitMiddleware(r.cfg.RateLimit.RPS, r.cfg.RateLimit.Burst))
	v1.Use(auth.IdentityMiddleware())
	{
		definitions := v1.Group("/definitions")
		{
			definitions.POST("", r.definitionCtrl.Create)
			definitions.GET("", r.definitionCtrl.List)
			definitions.GET("/:id", r.definitionCtrl.Get)
			definitions.POST("/:id/publish", r.definitionCtrl.Publish)
			definitions.POST("/:id/deprecate", r.definitionCtrl.Deprecate)
		}

		instances := v1.Group("/instances")
		{
			instances.POST("", r.workflowCtrl.Start)
			instances.GET("", r.workflowCtrl.List)
			instances.GET("/:id", r.workflowCtrl.Get)
			instances.GET("/:id/approvals", r.workflowCtrl.Approvals)
			instances.POST("/:id/withdraw", r.workflowCtrl.Withdraw)
			instances.POST("/:id/terminate", r.workflowCtrl.Terminate)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("/pending", r.taskCtrl.Pending)
			tasks.GET("/:id/approvals", r.taskCtrl.Approvals)
			tasks.POST("/:id/approve", r.taskCtrl.Approve)
			tasks.POST("/:id/reject", r.taskCtrl.Reject)
		}
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    404,
			Message: "route not found",
		})
	})

	return engine
}
