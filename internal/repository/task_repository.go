package repository

import (
	"time"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 审批任务仓储接口
type TaskRepository interface {
	FindByID(id string) (*model.WorkflowTask, error)
	FindByInstance(instanceID string) ([]*model.WorkflowTask, error)
	FindPendingByAssignee(assignee string) ([]*model.WorkflowTask, error)
	FindOverduePending(before time.Time, limit int) ([]*model.WorkflowTask, error)
}

// taskRepository 审批任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建审批任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.WorkflowTask, error) {
	var task model.WorkflowTask
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByInstance 查找实例的全部任务
func (r *taskRepository) FindByInstance(instanceID string) ([]*model.WorkflowTask, error) {
	var tasks []*model.WorkflowTask
	err := r.db.Where("instance_id = ?", instanceID).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

// FindPendingByAssignee 查找受理人的待办任务
func (r *taskRepository) FindPendingByAssignee(assignee string) ([]*model.WorkflowTask, error) {
	var tasks []*model.WorkflowTask
	err := r.db.Where("assignee = ? AND status = ?", assignee, model.TaskStatusPending).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// FindOverduePending 查找已逾期的 pending 任务,供超时扫描使用
func (r *taskRepository) FindOverduePending(before time.Time, limit int) ([]*model.WorkflowTask, error) {
	var tasks []*model.WorkflowTask
	query := r.db.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", model.TaskStatusPending, before).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&tasks).Error
	return tasks, err
}
