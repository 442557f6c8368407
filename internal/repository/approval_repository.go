package repository

import (
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"gorm.io/gorm"
)

// ApprovalRepository 审批意见仓储接口
// 审批意见只追加,仓储不提供更新或删除能力
type ApprovalRepository interface {
	FindByTaskID(taskID string) ([]*model.WorkflowApproval, error)
	FindByInstanceID(instanceID string) ([]*model.WorkflowApproval, error)
	FindByApprover(approver string) ([]*model.WorkflowApproval, error)
}

// approvalRepository 审批意见仓储实现
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository 创建审批意见仓储
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// FindByTaskID 根据任务 ID 查找审批意见
func (r *approvalRepository) FindByTaskID(taskID string) ([]*model.WorkflowApproval, error) {
	var approvals []*model.WorkflowApproval
	err := r.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

// FindByInstanceID 查找实例的完整审批轨迹
func (r *approvalRepository) FindByInstanceID(instanceID string) ([]*model.WorkflowApproval, error) {
	var approvals []*model.WorkflowApproval
	err := r.db.Where("instance_id = ?", instanceID).Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

// FindByApprover 根据审批人查找审批意见
func (r *approvalRepository) FindByApprover(approver string) ([]*model.WorkflowApproval, error) {
	var approvals []*model.WorkflowApproval
	err := r.db.Where("approver = ?", approver).Order("created_at DESC").Find(&approvals).Error
	return approvals, err
}
