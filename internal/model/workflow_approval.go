package model

import (
	"errors"
	"time"
)

// 审批动作
const (
	ApprovalActionApprove = "approve" // 同意
	ApprovalActionReject  = "reject"  // 拒绝
)

// WorkflowApproval 审批意见数据模型
// 只追加的审计记录,不允许更新或删除
type WorkflowApproval struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID     string    `gorm:"type:varchar(64);not null;index" json:"task_id"`
	InstanceID string    `gorm:"type:varchar(64);not null;index" json:"instance_id"`
	NodeID     string    `gorm:"type:varchar(64);not null" json:"node_id"`
	Approver   string    `gorm:"type:varchar(64);not null;index" json:"approver"`
	Action     string    `gorm:"type:varchar(32);not null" json:"action"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (WorkflowApproval) TableName() string {
	return "workflow_approvals"
}

// Validate 验证审批意见模型
func (a *WorkflowApproval) Validate() error {
	if a.ID == "" {
		return errors.New("approval ID is required")
	}
	if a.TaskID == "" {
		return errors.New("task ID is required")
	}
	if a.Approver == "" {
		return errors.New("approver is required")
	}
	if a.Action != ApprovalActionApprove && a.Action != ApprovalActionReject {
		return errors.New("approval action must be approve or reject")
	}
	return nil
}
