package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

func testInstance(initiator string) *model.WorkflowInstance {
	return &model.WorkflowInstance{ID: "inst-001", Initiator: initiator}
}

// TestResolve_User 测试固定用户配置
func TestResolve_User(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeUser, UserID: "bob"},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, approvers)
}

// TestResolve_UserNotFound 测试不存在的用户
func TestResolve_UserNotFound(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	_, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeUser, UserID: "ghost"},
	}, testInstance("alice"))
	require.Error(t, err)
	var resolveErr *workflow.ApproverResolutionError
	assert.ErrorAs(t, err, &resolveErr)
}

// TestResolve_Initiator 测试发起人配置
func TestResolve_Initiator(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeInitiator},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, approvers)
}

// TestResolve_Role 测试角色成员配置
func TestResolve_Role(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeRole, RoleID: "finance"},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, approvers)

	// 空角色解析失败
	_, err = r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeRole, RoleID: "empty-role"},
	}, testInstance("alice"))
	assert.Error(t, err)
}

// TestResolve_DepartmentLeader 测试部门负责人配置
func TestResolve_DepartmentLeader(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeDepartmentLeader, DepartmentID: "dept-1"},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, approvers)

	// 无负责人的部门解析失败
	_, err = r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeDepartmentLeader, DepartmentID: "dept-9"},
	}, testInstance("alice"))
	assert.Error(t, err)
}

// TestResolve_Manager 测试直属上级配置
func TestResolve_Manager(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeManager},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, approvers)

	// 无上级的发起人解析失败
	_, err = r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeManager},
	}, testInstance("dave"))
	assert.Error(t, err)
}

// TestResolve_Dedup 测试多配置去重并保持顺序
func TestResolve_Dedup(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	// bob 同时是固定用户、finance 成员和 alice 的上级,只出现一次
	approvers, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: workflow.ApproverTypeUser, UserID: "bob"},
		{Type: workflow.ApproverTypeRole, RoleID: "finance"},
		{Type: workflow.ApproverTypeManager},
	}, testInstance("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, approvers)
}

// TestResolve_UnknownType 测试未知配置类型
func TestResolve_UnknownType(t *testing.T) {
	r := workflow.NewApproverResolver(newFakeDirectory())

	_, err := r.Resolve(context.Background(), []workflow.ApproverConfig{
		{Type: "group"},
	}, testInstance("alice"))
	require.Error(t, err)
	var resolveErr *workflow.ApproverResolutionError
	assert.ErrorAs(t, err, &resolveErr)
}
