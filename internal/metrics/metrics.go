package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求耗时
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 流程实例发起计数器
	instancesStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_instances_started_total",
			Help: "Total number of workflow instances started",
		},
	)

	// 流程实例完成计数器,按终态区分
	instancesCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_instances_completed_total",
			Help: "Total number of workflow instances reaching a terminal status",
		},
		[]string{"status"},
	)

	// 审批任务创建计数器
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_tasks_created_total",
			Help: "Total number of workflow tasks created",
		},
	)

	// 审批动作计数器
	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_approvals_total",
			Help: "Total number of approval actions",
		},
		[]string{"action"},
	)

	// 任务状态分布
	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workflow_tasks_by_status",
			Help: "Current number of workflow tasks by status",
		},
		[]string{"status"},
	)

	// 数据库连接池指标
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)
	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)
	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of open database connections",
		},
	)
)

var once sync.Once

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(instancesStartedTotal)
	prometheus.MustRegister(instancesCompletedTotal)
	prometheus.MustRegister(tasksCreatedTotal)
	prometheus.MustRegister(approvalsTotal)
	prometheus.MustRegister(tasksByStatus)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)

	// 注册 Go 运行时指标(只注册一次)
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordInstanceStarted 记录实例发起
func RecordInstanceStarted() {
	instancesStartedTotal.Inc()
}

// RecordInstanceCompleted 记录实例进入终态
func RecordInstanceCompleted(status string) {
	instancesCompletedTotal.WithLabelValues(status).Inc()
}

// RecordTasksCreated 记录任务创建
func RecordTasksCreated(count int) {
	tasksCreatedTotal.Add(float64(count))
}

// RecordApproval 记录审批动作
func RecordApproval(action string) {
	approvalsTotal.WithLabelValues(action).Inc()
}

// UpdateTasksByStatus 更新任务状态分布指标
func UpdateTasksByStatus(status string, count float64) {
	tasksByStatus.WithLabelValues(status).Set(count)
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))
	return nil
}
