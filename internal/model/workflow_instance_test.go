package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
)

// TestInstanceStatusTransitions 测试实例状态判定
func TestInstanceStatusTransitions(t *testing.T) {
	inst := &model.WorkflowInstance{Status: model.InstanceStatusPendingApproval}
	assert.True(t, inst.IsActive())
	assert.False(t, inst.IsTerminal())

	inst.Status = model.InstanceStatusRunning
	assert.True(t, inst.IsActive())

	for _, status := range []string{
		model.InstanceStatusApproved,
		model.InstanceStatusRejected,
		model.InstanceStatusCancelled,
		model.InstanceStatusTerminated,
	} {
		inst.Status = status
		assert.False(t, inst.IsActive(), status)
		assert.True(t, inst.IsTerminal(), status)
	}
}

// TestProgressPercentage 测试进度计算
func TestProgressPercentage(t *testing.T) {
	inst := &model.WorkflowInstance{TotalTasks: 4, CompletedTasks: 2}
	assert.Equal(t, float64(50), inst.ProgressPercentage())

	// 无任务时进度为 0 而不是除零
	inst = &model.WorkflowInstance{TotalTasks: 0, CompletedTasks: 0}
	assert.Equal(t, float64(0), inst.ProgressPercentage())

	inst = &model.WorkflowInstance{TotalTasks: 3, CompletedTasks: 3}
	assert.Equal(t, float64(100), inst.ProgressPercentage())
}

// TestGetVariable 测试按点分路径读取变量
func TestGetVariable(t *testing.T) {
	inst := &model.WorkflowInstance{
		Variables: []byte(`{"amount": 15000, "applicant": {"department": {"id": 5}}}`),
	}

	assert.Equal(t, float64(15000), inst.GetVariable("amount", nil))
	assert.Equal(t, float64(5), inst.GetVariable("applicant.department.id", nil))
	assert.Equal(t, "fallback", inst.GetVariable("missing.path", "fallback"))
	assert.Equal(t, "fallback", inst.GetVariable("amount.nested", "fallback"))
}

// TestSetVariable 测试按点分路径写入变量
func TestSetVariable(t *testing.T) {
	inst := &model.WorkflowInstance{}

	require.NoError(t, inst.SetVariable("approval.result", "ok"))
	assert.Equal(t, "ok", inst.GetVariable("approval.result", nil))

	// 覆盖已有值
	require.NoError(t, inst.SetVariable("approval.result", "changed"))
	assert.Equal(t, "changed", inst.GetVariable("approval.result", nil))

	// 路径与非对象值冲突时报错
	require.NoError(t, inst.SetVariable("amount", 100))
	assert.Error(t, inst.SetVariable("amount.nested", 1))

	// 空路径报错
	assert.Error(t, inst.SetVariable("", 1))
}

// TestInstanceValidate 测试实例校验
func TestInstanceValidate(t *testing.T) {
	inst := &model.WorkflowInstance{
		ID:           "inst-001",
		DefinitionID: "def-001",
		BusinessID:   "biz-001",
		Initiator:    "alice",
		Status:       model.InstanceStatusPendingApproval,
	}
	assert.NoError(t, inst.Validate())

	inst.Initiator = ""
	assert.Error(t, inst.Validate())
}

// TestTaskIsOverdue 测试任务逾期判定
func TestTaskIsOverdue(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	task := &model.WorkflowTask{Status: model.TaskStatusPending, DueDate: &past}
	assert.True(t, task.IsOverdue())

	task.DueDate = &future
	assert.False(t, task.IsOverdue())

	// 无截止时间的任务永不逾期
	task.DueDate = nil
	assert.False(t, task.IsOverdue())

	// 已完成任务即使超过截止时间也不逾期
	task = &model.WorkflowTask{Status: model.TaskStatusApproved, DueDate: &past}
	assert.False(t, task.IsOverdue())
}
