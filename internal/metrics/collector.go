package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
)

// Collector 指标收集器
// 周期性刷新数据库连接池与任务状态分布指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器,重复调用无效果
func (c *Collector) Start() {
	if c.started {
		return
	}
	c.started = true
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	if c.started {
		<-c.done
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.collectTaskStatus()
		}
	}
}

// collectTaskStatus 统计任务状态分布
func (c *Collector) collectTaskStatus() {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := c.db.Model(&model.WorkflowTask{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return
	}
	for _, row := range rows {
		UpdateTasksByStatus(row.Status, float64(row.Count))
	}
}
