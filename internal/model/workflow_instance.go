package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// 流程实例状态
const (
	InstanceStatusPendingApproval = "pending_approval" // 待审批
	InstanceStatusRunning         = "running"          // 审批中
	InstanceStatusApproved        = "approved"         // 已通过
	InstanceStatusRejected        = "rejected"         // 已拒绝
	InstanceStatusCancelled       = "cancelled"        // 已撤回
	InstanceStatusTerminated      = "terminated"       // 已终止
)

// WorkflowInstance 流程实例数据模型
// 一个实例对应流程定义针对一条业务记录的一次执行
type WorkflowInstance struct {
	ID                 string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DefinitionID       string         `gorm:"type:varchar(64);not null;index" json:"definition_id"`
	BusinessObjectCode string         `gorm:"type:varchar(64);not null;index" json:"business_object_code"`
	BusinessID         string         `gorm:"type:varchar(64);not null;index" json:"business_id"`
	BusinessNo         string         `gorm:"type:varchar(64)" json:"business_no"`
	Title              string         `gorm:"type:varchar(255)" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Priority           string         `gorm:"type:varchar(16);not null;default:'normal'" json:"priority"`
	Initiator          string         `gorm:"type:varchar(64);not null;index" json:"initiator"`
	Status             string         `gorm:"type:varchar(32);not null;index" json:"status"`
	CurrentNode        string         `gorm:"type:varchar(64)" json:"current_node"` // 当前审批节点 ID
	Variables          datatypes.JSON `json:"variables"`                            // 运行时变量,条件分支据此求值
	TotalTasks         int            `gorm:"not null;default:0" json:"total_tasks"`
	CompletedTasks     int            `gorm:"not null;default:0" json:"completed_tasks"`
	StartedAt          time.Time      `gorm:"not null;index" json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	TerminatedBy       string         `gorm:"type:varchar(64)" json:"terminated_by"`
	TerminateReason    string         `gorm:"type:text" json:"terminate_reason"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (WorkflowInstance) TableName() string {
	return "workflow_instances"
}

// IsActive 判断实例是否处于活动状态(可继续审批)
func (i *WorkflowInstance) IsActive() bool {
	return i.Status == InstanceStatusPendingApproval || i.Status == InstanceStatusRunning
}

// IsTerminal 判断实例是否已进入终态
// 终态不可逆,终态实例不允许再创建或执行任务
func (i *WorkflowInstance) IsTerminal() bool {
	switch i.Status {
	case InstanceStatusApproved, InstanceStatusRejected, InstanceStatusCancelled, InstanceStatusTerminated:
		return true
	}
	return false
}

// ProgressPercentage 计算审批进度百分比
func (i *WorkflowInstance) ProgressPercentage() float64 {
	if i.TotalTasks == 0 {
		return 0
	}
	return float64(i.CompletedTasks) / float64(i.TotalTasks) * 100
}

// VariableMap 反序列化运行时变量
func (i *WorkflowInstance) VariableMap() map[string]interface{} {
	vars := make(map[string]interface{})
	if len(i.Variables) == 0 {
		return vars
	}
	if err := json.Unmarshal(i.Variables, &vars); err != nil {
		return make(map[string]interface{})
	}
	return vars
}

// GetVariable 按点分路径读取变量,路径不存在时返回默认值
func (i *WorkflowInstance) GetVariable(path string, defaultValue interface{}) interface{} {
	var current interface{} = i.VariableMap()

	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return defaultValue
		}
		value, exists := m[segment]
		if !exists {
			return defaultValue
		}
		current = value
	}
	return current
}

// SetVariable 按点分路径写入变量,中间层级不存在时自动创建
func (i *WorkflowInstance) SetVariable(path string, value interface{}) error {
	if path == "" {
		return errors.New("variable path is required")
	}

	vars := i.VariableMap()
	segments := strings.Split(path, ".")
	current := vars
	for _, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists {
			child := make(map[string]interface{})
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("variable path %q conflicts with non-object value", path)
		}
		current = child
	}
	current[segments[len(segments)-1]] = value

	data, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	i.Variables = data
	return nil
}

// Validate 验证流程实例模型
func (i *WorkflowInstance) Validate() error {
	if i.ID == "" {
		return errors.New("instance ID is required")
	}
	if i.DefinitionID == "" {
		return errors.New("definition ID is required")
	}
	if i.BusinessID == "" {
		return errors.New("business ID is required")
	}
	if i.Initiator == "" {
		return errors.New("initiator is required")
	}
	if i.Status == "" {
		return errors.New("instance status is required")
	}
	return nil
}
