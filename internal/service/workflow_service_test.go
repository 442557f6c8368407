package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/directory"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/service"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// setupServiceTest 装配流程服务及其依赖
func setupServiceTest(t *testing.T) (service.WorkflowService, service.QueryService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.WorkflowDefinition{},
		&model.WorkflowInstance{},
		&model.WorkflowTask{},
		&model.WorkflowApproval{},
		&model.AuditLogModel{},
		&model.User{},
		&model.Role{},
		&model.RoleMember{},
		&model.Department{},
	)
	require.NoError(t, err)

	// 样例组织数据
	require.NoError(t, db.Create(&model.User{ID: "alice", Name: "Alice", ManagerID: "bob", Active: true}).Error)
	require.NoError(t, db.Create(&model.User{ID: "bob", Name: "Bob", Active: true}).Error)

	engine := workflow.NewEngine(db, directory.NewGormDirectory(db), nil, nil)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	workflowSvc := service.NewWorkflowService(engine, repository.NewDefinitionRepository(db), repository.NewTaskRepository(db), auditSvc, nil)
	querySvc := service.NewQueryService(repository.NewInstanceRepository(db), repository.NewTaskRepository(db), repository.NewApprovalRepository(db))
	return workflowSvc, querySvc, db
}

func definitionRequest(code string) *service.CreateDefinitionRequest {
	return &service.CreateDefinitionRequest{
		Code:               code,
		Name:               "领用审批",
		BusinessObjectCode: "asset_pickup",
		GraphData: map[string]interface{}{
			"nodes": []map[string]interface{}{
				{"id": "start", "type": "start"},
				{"id": "a1", "type": "approval", "properties": map[string]interface{}{
					"approveType": "or",
					"approvers":   []map[string]interface{}{{"type": "user", "user_id": "bob"}},
				}},
				{"id": "end", "type": "end"},
			},
			"edges": []map[string]interface{}{
				{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
				{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
			},
		},
		CreatedBy: "admin",
	}
}

// TestCreateDefinition 测试创建定义与版本递增
func TestCreateDefinition(t *testing.T) {
	svc, _, _ := setupServiceTest(t)
	ctx := context.Background()

	first, err := svc.CreateDefinition(ctx, definitionRequest("pickup"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, model.DefinitionStatusDraft, first.Status)

	second, err := svc.CreateDefinition(ctx, definitionRequest("pickup"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

// TestCreateDefinition_InvalidGraph 测试非法流程图不落库
func TestCreateDefinition_InvalidGraph(t *testing.T) {
	svc, _, db := setupServiceTest(t)

	req := definitionRequest("pickup")
	req.GraphData = map[string]interface{}{"nodes": []map[string]interface{}{}, "edges": []map[string]interface{}{}}

	_, err := svc.CreateDefinition(context.Background(), req)
	require.Error(t, err)
	var graphErr *workflow.GraphValidationError
	assert.ErrorAs(t, err, &graphErr)

	var count int64
	db.Model(&model.WorkflowDefinition{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestDefinitionLifecycle 测试定义发布与废弃
func TestDefinitionLifecycle(t *testing.T) {
	svc, _, db := setupServiceTest(t)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, definitionRequest("pickup"))
	require.NoError(t, err)

	require.NoError(t, svc.PublishDefinition(ctx, def.ID, "admin"))

	var saved model.WorkflowDefinition
	require.NoError(t, db.Where("id = ?", def.ID).First(&saved).Error)
	assert.Equal(t, model.DefinitionStatusPublished, saved.Status)

	// 已发布的定义不可重复发布
	assert.Error(t, svc.PublishDefinition(ctx, def.ID, "admin"))

	require.NoError(t, svc.DeprecateDefinition(ctx, def.ID, "admin"))
	require.NoError(t, db.Where("id = ?", def.ID).First(&saved).Error)
	assert.Equal(t, model.DefinitionStatusDeprecated, saved.Status)

	// 发布与废弃留有审计日志
	var logs int64
	db.Model(&model.AuditLogModel{}).Where("resource_id = ?", def.ID).Count(&logs)
	assert.Equal(t, int64(2), logs)
}

// TestStartAndApprove 测试完整的发起到通过链路
func TestStartAndApprove(t *testing.T) {
	svc, querySvc, _ := setupServiceTest(t)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, definitionRequest("pickup"))
	require.NoError(t, err)
	require.NoError(t, svc.PublishDefinition(ctx, def.ID, "admin"))

	instance, err := svc.Start(ctx, &service.StartWorkflowRequest{
		BusinessObjectCode: "asset_pickup",
		BusinessID:         "pickup-001",
		Title:              "办公设备领用",
		Initiator:          "alice",
		Variables:          map[string]interface{}{"amount": 500},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceStatusPendingApproval, instance.Status)

	// 审批人待办中能看到任务
	pending, err := querySvc.ListPendingTasks("bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	updated, err := svc.Approve(ctx, pending[0].ID, "bob", "同意")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceStatusApproved, updated.Status)

	// 实例详情含任务与进度
	detail, err := querySvc.GetInstance(instance.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), detail.Progress)
	assert.Len(t, detail.Tasks, 1)

	// 审批轨迹可查
	trail, err := querySvc.GetInstanceApprovals(instance.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "同意", trail[0].Comment)
}

// TestStart_NoPublishedDefinition 测试无已发布定义时发起失败
func TestStart_NoPublishedDefinition(t *testing.T) {
	svc, _, _ := setupServiceTest(t)

	_, err := svc.Start(context.Background(), &service.StartWorkflowRequest{
		BusinessObjectCode: "asset_return",
		BusinessID:         "return-001",
		Initiator:          "alice",
	})
	assert.ErrorIs(t, err, workflow.ErrDefinitionNotPublished)
}

// TestExpireOverdueTasks 测试逾期任务批量处理
func TestExpireOverdueTasks(t *testing.T) {
	svc, _, db := setupServiceTest(t)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, definitionRequest("pickup"))
	require.NoError(t, err)
	require.NoError(t, svc.PublishDefinition(ctx, def.ID, "admin"))

	instance, err := svc.Start(ctx, &service.StartWorkflowRequest{
		BusinessObjectCode: "asset_pickup",
		BusinessID:         "pickup-001",
		Initiator:          "alice",
	})
	require.NoError(t, err)

	// 手动把任务置为逾期
	overdue := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&model.WorkflowTask{}).
		Where("instance_id = ?", instance.ID).
		Update("due_date", overdue).Error)

	handled, err := svc.ExpireOverdueTasks(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)

	// 原任务过期,新任务重新派发
	var statuses []string
	require.NoError(t, db.Model(&model.WorkflowTask{}).
		Where("instance_id = ?", instance.ID).
		Order("created_at ASC").
		Pluck("status", &statuses).Error)
	assert.Equal(t, []string{model.TaskStatusExpired, model.TaskStatusPending}, statuses)

	// 再扫一轮没有新的逾期任务
	handled, err = svc.ExpireOverdueTasks(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
}

// TestExpireOverdueTasks_LogsFailedTask 测试单条处理失败时记录日志并继续
func TestExpireOverdueTasks_LogsFailedTask(t *testing.T) {
	_, _, db := setupServiceTest(t)
	ctx := context.Background()

	logger, hook := logrustest.NewNullLogger()
	engine := workflow.NewEngine(db, directory.NewGormDirectory(db), nil, nil)
	svc := service.NewWorkflowService(engine, repository.NewDefinitionRepository(db), repository.NewTaskRepository(db), nil, logger)

	// 实例已终态但任务仍 pending 且逾期,过期处理必然失败
	now := time.Now()
	overdue := now.Add(-time.Hour)
	require.NoError(t, db.Create(&model.WorkflowInstance{
		ID:                 "inst-dead",
		DefinitionID:       "def-x",
		BusinessObjectCode: "asset_pickup",
		BusinessID:         "pickup-dead",
		Initiator:          "alice",
		Status:             model.InstanceStatusRejected,
		StartedAt:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}).Error)
	require.NoError(t, db.Create(&model.WorkflowTask{
		ID:         "task-dead",
		InstanceID: "inst-dead",
		NodeID:     "a1",
		NodeType:   "approval",
		Assignee:   "bob",
		Status:     model.TaskStatusPending,
		DueDate:    &overdue,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error)

	handled, err := svc.ExpireOverdueTasks(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)

	// 失败任务留下一条告警日志
	require.NotEmpty(t, hook.Entries)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "task-dead", entry.Data["task_id"])
	assert.ErrorIs(t, entry.Data["error"].(error), workflow.ErrInstanceNotActive)
}
