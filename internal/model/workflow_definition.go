package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// 流程定义状态
const (
	DefinitionStatusDraft      = "draft"      // 草稿
	DefinitionStatusPublished  = "published"  // 已发布
	DefinitionStatusDeprecated = "deprecated" // 已废弃
)

// WorkflowDefinition 流程定义数据模型
// 发布后 GraphData 不可变更,新版本使用新的定义记录
type WorkflowDefinition struct {
	ID                 string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Code               string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_definitions_code_version" json:"code"`
	Version            int            `gorm:"not null;default:1;uniqueIndex:idx_definitions_code_version" json:"version"`
	Name               string         `gorm:"type:varchar(255);not null" json:"name"`
	BusinessObjectCode string         `gorm:"type:varchar(64);not null;index" json:"business_object_code"` // 关联的业务对象,如 asset_pickup
	Status             string         `gorm:"type:varchar(32);not null;index" json:"status"`
	GraphData          datatypes.JSON `gorm:"not null" json:"graph_data"` // 节点与边的流程图定义
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	CreatedBy          string         `gorm:"type:varchar(64)" json:"created_by"`
}

// TableName 指定表名
func (WorkflowDefinition) TableName() string {
	return "workflow_definitions"
}

// IsPublished 判断定义是否已发布
func (d *WorkflowDefinition) IsPublished() bool {
	return d.Status == DefinitionStatusPublished
}

// Validate 验证流程定义模型
func (d *WorkflowDefinition) Validate() error {
	if d.ID == "" {
		return errors.New("definition ID is required")
	}
	if d.Code == "" {
		return errors.New("definition code is required")
	}
	if d.BusinessObjectCode == "" {
		return errors.New("business object code is required")
	}
	if d.Status == "" {
		return errors.New("definition status is required")
	}
	if len(d.GraphData) == 0 {
		return errors.New("graph data is required")
	}
	return nil
}
