package workflow

import "time"

// 通知事件类型
const (
	EventTaskCreated       = "task_created"       // 新任务指派
	EventInstanceCompleted = "instance_completed" // 实例进入终态
)

// Notification 通知消息
type Notification struct {
	Event      string    `json:"event"`
	InstanceID string    `json:"instance_id"`
	TaskID     string    `json:"task_id,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
	Assignee   string    `json:"assignee,omitempty"`
	Status     string    `json:"status,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 通知分发器
// fire-and-forget: 投递失败不影响流程流转,引擎在事务提交后才发出通知
type Notifier interface {
	Notify(n *Notification)
}

// NopNotifier 空通知分发器
type NopNotifier struct{}

// Notify 丢弃通知
func (NopNotifier) Notify(n *Notification) {}
