package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/metrics"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// WorkflowService 流程服务接口
// 引擎的业务门面: 定位流程定义、调用引擎、记录审计与指标
type WorkflowService interface {
	// 定义管理
	CreateDefinition(ctx context.Context, req *CreateDefinitionRequest) (*model.WorkflowDefinition, error)
	PublishDefinition(ctx context.Context, id string, actor string) error
	DeprecateDefinition(ctx context.Context, id string, actor string) error

	// 流程执行
	Start(ctx context.Context, req *StartWorkflowRequest) (*model.WorkflowInstance, error)
	Approve(ctx context.Context, taskID string, actor string, comment string) (*model.WorkflowInstance, error)
	Reject(ctx context.Context, taskID string, actor string, comment string) (*model.WorkflowInstance, error)
	Withdraw(ctx context.Context, instanceID string, actor string) error
	Terminate(ctx context.Context, instanceID string, actor string, reason string) error

	// 超时扫描入口,由外部周期任务调用
	ExpireOverdueTasks(ctx context.Context, batchSize int) (int, error)
}

// CreateDefinitionRequest 创建流程定义请求
type CreateDefinitionRequest struct {
	Code               string                 `json:"code" binding:"required"`
	Name               string                 `json:"name" binding:"required"`
	BusinessObjectCode string                 `json:"business_object_code" binding:"required"`
	GraphData          map[string]interface{} `json:"graph_data" binding:"required"`
	CreatedBy          string                 `json:"-"`
}

// StartWorkflowRequest 发起流程请求
type StartWorkflowRequest struct {
	BusinessObjectCode string                 `json:"business_object_code" binding:"required"`
	BusinessID         string                 `json:"business_id" binding:"required"`
	BusinessNo         string                 `json:"business_no"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Priority           string                 `json:"priority"`
	Variables          map[string]interface{} `json:"variables"`
	Initiator          string                 `json:"-"`
}

// workflowService 流程服务实现
type workflowService struct {
	engine      *workflow.Engine
	defRepo     repository.DefinitionRepository
	taskRepo    repository.TaskRepository
	auditLogSvc AuditLogService
	logger      *logrus.Logger
}

// NewWorkflowService 创建流程服务
func NewWorkflowService(engine *workflow.Engine, defRepo repository.DefinitionRepository, taskRepo repository.TaskRepository, auditLogSvc AuditLogService, logger *logrus.Logger) WorkflowService {
	if logger == nil {
		logger = logrus.New()
	}
	return &workflowService{
		engine:      engine,
		defRepo:     defRepo,
		taskRepo:    taskRepo,
		auditLogSvc: auditLogSvc,
		logger:      logger,
	}
}

// CreateDefinition 创建草稿态流程定义
// 创建时即解析流程图,结构非法的定义不落库
func (s *workflowService) CreateDefinition(ctx context.Context, req *CreateDefinitionRequest) (*model.WorkflowDefinition, error) {
	graphData, err := json.Marshal(req.GraphData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph data: %w", err)
	}
	if _, err := workflow.ParseGraph(graphData); err != nil {
		return nil, err
	}

	// 同 code 定义自动递增版本
	version := 1
	existing, err := s.defRepo.FindAll(&repository.DefinitionFilter{Code: &req.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to query existing definitions: %w", err)
	}
	for _, def := range existing {
		if def.Version >= version {
			version = def.Version + 1
		}
	}

	now := time.Now()
	def := &model.WorkflowDefinition{
		ID:                 uuid.New().String(),
		Code:               req.Code,
		Version:            version,
		Name:               req.Name,
		BusinessObjectCode: req.BusinessObjectCode,
		Status:             model.DefinitionStatusDraft,
		GraphData:          graphData,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedBy:          req.CreatedBy,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := s.defRepo.Save(def); err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}
	return def, nil
}

// PublishDefinition 发布流程定义
// 发布时再次校验流程图,发布后图不可变
func (s *workflowService) PublishDefinition(ctx context.Context, id string, actor string) error {
	def, err := s.defRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("definition %q not found: %w", id, err)
		}
		return fmt.Errorf("failed to load definition: %w", err)
	}
	if def.Status != model.DefinitionStatusDraft {
		return fmt.Errorf("definition %q is not a draft", id)
	}
	if _, err := workflow.ParseGraph(def.GraphData); err != nil {
		return err
	}

	def.Status = model.DefinitionStatusPublished
	def.UpdatedAt = time.Now()
	if err := s.defRepo.Save(def); err != nil {
		return fmt.Errorf("failed to publish definition: %w", err)
	}

	s.audit(ctx, actor, "publish", "definition", id, fmt.Sprintf(`{"code":%q,"version":%d}`, def.Code, def.Version))
	return nil
}

// DeprecateDefinition 废弃流程定义
// 已发起的实例不受影响,继续按原图执行
func (s *workflowService) DeprecateDefinition(ctx context.Context, id string, actor string) error {
	def, err := s.defRepo.FindByID(id)
	if err != nil {
		return fmt.Errorf("failed to load definition: %w", err)
	}
	if def.Status != model.DefinitionStatusPublished {
		return fmt.Errorf("definition %q is not published", id)
	}

	def.Status = model.DefinitionStatusDeprecated
	def.UpdatedAt = time.Now()
	if err := s.defRepo.Save(def); err != nil {
		return fmt.Errorf("failed to deprecate definition: %w", err)
	}

	s.audit(ctx, actor, "deprecate", "definition", id, "")
	return nil
}

// Start 发起流程
// 按业务对象定位当前已发布的定义,交由引擎执行
func (s *workflowService) Start(ctx context.Context, req *StartWorkflowRequest) (*model.WorkflowInstance, error) {
	def, err := s.defRepo.FindPublishedByBusinessObject(req.BusinessObjectCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no published definition for business object %q: %w", req.BusinessObjectCode, workflow.ErrDefinitionNotPublished)
		}
		return nil, fmt.Errorf("failed to load definition: %w", err)
	}

	instance, err := s.engine.StartWorkflow(ctx, def, &workflow.StartRequest{
		BusinessObjectCode: req.BusinessObjectCode,
		BusinessID:         req.BusinessID,
		BusinessNo:         req.BusinessNo,
		Initiator:          req.Initiator,
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Variables:          req.Variables,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordInstanceStarted()
	metrics.RecordTasksCreated(instance.TotalTasks)
	s.audit(ctx, req.Initiator, "start", "instance", instance.ID,
		fmt.Sprintf(`{"business_object_code":%q,"business_id":%q}`, req.BusinessObjectCode, req.BusinessID))
	return instance, nil
}

// Approve 审批同意
func (s *workflowService) Approve(ctx context.Context, taskID string, actor string, comment string) (*model.WorkflowInstance, error) {
	return s.execute(ctx, taskID, model.ApprovalActionApprove, actor, comment)
}

// Reject 审批拒绝
func (s *workflowService) Reject(ctx context.Context, taskID string, actor string, comment string) (*model.WorkflowInstance, error) {
	return s.execute(ctx, taskID, model.ApprovalActionReject, actor, comment)
}

// execute 执行审批动作
func (s *workflowService) execute(ctx context.Context, taskID string, action string, actor string, comment string) (*model.WorkflowInstance, error) {
	instance, err := s.engine.ExecuteTask(ctx, taskID, action, actor, comment)
	if err != nil {
		return nil, err
	}

	metrics.RecordApproval(action)
	if instance.IsTerminal() {
		metrics.RecordInstanceCompleted(instance.Status)
	}
	s.audit(ctx, actor, action, "task", taskID, fmt.Sprintf(`{"instance_id":%q}`, instance.ID))
	return instance, nil
}

// Withdraw 发起人撤回实例
func (s *workflowService) Withdraw(ctx context.Context, instanceID string, actor string) error {
	if err := s.engine.WithdrawInstance(ctx, instanceID, actor); err != nil {
		return err
	}
	metrics.RecordInstanceCompleted(model.InstanceStatusCancelled)
	s.audit(ctx, actor, "withdraw", "instance", instanceID, "")
	return nil
}

// Terminate 特权终止实例
func (s *workflowService) Terminate(ctx context.Context, instanceID string, actor string, reason string) error {
	if err := s.engine.TerminateInstance(ctx, instanceID, actor, reason); err != nil {
		return err
	}
	metrics.RecordInstanceCompleted(model.InstanceStatusTerminated)
	s.audit(ctx, actor, "terminate", "instance", instanceID, fmt.Sprintf(`{"reason":%q}`, reason))
	return nil
}

// ExpireOverdueTasks 扫描并处理逾期任务,返回处理数量
// 单条失败不中断整轮扫描
func (s *workflowService) ExpireOverdueTasks(ctx context.Context, batchSize int) (int, error) {
	tasks, err := s.taskRepo.FindOverduePending(time.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue tasks: %w", err)
	}

	handled := 0
	for _, task := range tasks {
		if err := s.engine.ExpireTask(ctx, task.ID); err != nil {
			// 单条失败不中断整轮扫描,记录后继续
			s.logger.WithError(err).WithFields(logrus.Fields{
				"task_id":     task.ID,
				"instance_id": task.InstanceID,
			}).Warn("failed to expire overdue task")
			continue
		}
		handled++
	}
	return handled, nil
}

// audit 记录审计日志,失败不影响主流程
func (s *workflowService) audit(ctx context.Context, userID string, action string, resourceType string, resourceID string, details string) {
	if s.auditLogSvc == nil || userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, resourceType, resourceID, details)
}
