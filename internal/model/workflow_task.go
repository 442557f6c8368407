package model

import (
	"errors"
	"time"
)

// 审批任务状态
const (
	TaskStatusPending  = "pending"  // 待处理
	TaskStatusApproved = "approved" // 已同意
	TaskStatusRejected = "rejected" // 已拒绝
	TaskStatusExpired  = "expired"  // 已超时
	TaskStatusSkipped  = "skipped"  // 已跳过
)

// WorkflowTask 审批任务数据模型
// 一条任务对应 (流程节点, 审批人) 的一次指派,非 pending 后不可变更
type WorkflowTask struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	InstanceID  string     `gorm:"type:varchar(64);not null;index" json:"instance_id"`
	NodeID      string     `gorm:"type:varchar(64);not null;index" json:"node_id"`
	NodeType    string     `gorm:"type:varchar(32);not null" json:"node_type"`
	Assignee    string     `gorm:"type:varchar(64);not null;index" json:"assignee"`
	Status      string     `gorm:"type:varchar(32);not null;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy string     `gorm:"type:varchar(64)" json:"completed_by"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (WorkflowTask) TableName() string {
	return "workflow_tasks"
}

// IsPending 判断任务是否待处理
func (t *WorkflowTask) IsPending() bool {
	return t.Status == TaskStatusPending
}

// IsOverdue 判断任务是否已逾期
// 仅 pending 任务会逾期,已完成的任务即使超过截止时间也不算逾期
func (t *WorkflowTask) IsOverdue() bool {
	if t.Status != TaskStatusPending || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(time.Now())
}

// Validate 验证审批任务模型
func (t *WorkflowTask) Validate() error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if t.InstanceID == "" {
		return errors.New("instance ID is required")
	}
	if t.NodeID == "" {
		return errors.New("node ID is required")
	}
	if t.Assignee == "" {
		return errors.New("assignee is required")
	}
	if t.Status == "" {
		return errors.New("task status is required")
	}
	return nil
}
