package service

import (
	"fmt"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
)

// QueryService 流程查询服务接口
type QueryService interface {
	GetInstance(id string) (*InstanceDetail, error)
	ListInstances(filter *repository.InstanceFilter, page int, pageSize int) ([]*model.WorkflowInstance, int64, error)
	ListPendingTasks(assignee string) ([]*model.WorkflowTask, error)
	GetApprovalTrail(taskID string) ([]*model.WorkflowApproval, error)
	GetInstanceApprovals(instanceID string) ([]*model.WorkflowApproval, error)
}

// InstanceDetail 实例详情,含任务列表与进度
type InstanceDetail struct {
	Instance *model.WorkflowInstance `json:"instance"`
	Tasks    []*model.WorkflowTask   `json:"tasks"`
	Progress float64                 `json:"progress"`
}

// queryService 流程查询服务实现
type queryService struct {
	instanceRepo repository.InstanceRepository
	taskRepo     repository.TaskRepository
	approvalRepo repository.ApprovalRepository
}

// NewQueryService 创建流程查询服务
func NewQueryService(instanceRepo repository.InstanceRepository, taskRepo repository.TaskRepository, approvalRepo repository.ApprovalRepository) QueryService {
	return &queryService{
		instanceRepo: instanceRepo,
		taskRepo:     taskRepo,
		approvalRepo: approvalRepo,
	}
}

// GetInstance 获取实例详情
func (s *queryService) GetInstance(id string) (*InstanceDetail, error) {
	instance, err := s.instanceRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("instance not found: %w", err)
	}
	tasks, err := s.taskRepo.FindByInstance(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return &InstanceDetail{
		Instance: instance,
		Tasks:    tasks,
		Progress: instance.ProgressPercentage(),
	}, nil
}

// ListInstances 分页查询实例
func (s *queryService) ListInstances(filter *repository.InstanceFilter, page int, pageSize int) ([]*model.WorkflowInstance, int64, error) {
	return s.instanceRepo.FindByFilter(filter, page, pageSize)
}

// ListPendingTasks 查询受理人的待办任务
func (s *queryService) ListPendingTasks(assignee string) ([]*model.WorkflowTask, error) {
	return s.taskRepo.FindPendingByAssignee(assignee)
}

// GetApprovalTrail 查询任务的审批轨迹
func (s *queryService) GetApprovalTrail(taskID string) ([]*model.WorkflowApproval, error) {
	return s.approvalRepo.FindByTaskID(taskID)
}

// GetInstanceApprovals 查询实例的完整审批轨迹
func (s *queryService) GetInstanceApprovals(instanceID string) ([]*model.WorkflowApproval, error) {
	return s.approvalRepo.FindByInstanceID(instanceID)
}
