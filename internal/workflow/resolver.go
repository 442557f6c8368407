package workflow

import (
	"context"
	"fmt"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
)

// 审批人配置类型
const (
	ApproverTypeUser             = "user"              // 固定用户
	ApproverTypeInitiator        = "initiator"         // 发起人
	ApproverTypeRole             = "role"              // 角色成员
	ApproverTypeDepartmentLeader = "department_leader" // 部门负责人
	ApproverTypeManager          = "manager"           // 发起人直属上级
)

// DirectoryLookup 组织目录查询能力
// 由宿主应用注入,解析器不依赖具体的组织模型实现
type DirectoryLookup interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	RoleMembers(ctx context.Context, roleID string) ([]string, error)
	DepartmentLeader(ctx context.Context, departmentID string) (string, error)
	ManagerOf(ctx context.Context, userID string) (string, error)
}

// ApproverResolver 审批人解析器
// 将节点的审批人配置解析为去重后的具体用户列表,保持首次出现的顺序
type ApproverResolver struct {
	directory DirectoryLookup
}

// NewApproverResolver 创建审批人解析器
func NewApproverResolver(directory DirectoryLookup) *ApproverResolver {
	return &ApproverResolver{directory: directory}
}

// Resolve 解析审批人配置列表
// 任何配置无法解析或最终列表为空时返回 *ApproverResolutionError,
// 引擎不会创建审批人为空的任务
func (r *ApproverResolver) Resolve(ctx context.Context, configs []ApproverConfig, instance *model.WorkflowInstance) ([]string, error) {
	seen := make(map[string]bool)
	approvers := make([]string, 0, len(configs))

	add := func(userID string) {
		if userID != "" && !seen[userID] {
			seen[userID] = true
			approvers = append(approvers, userID)
		}
	}

	for _, cfg := range configs {
		switch cfg.Type {
		case ApproverTypeUser:
			exists, err := r.directory.UserExists(ctx, cfg.UserID)
			if err != nil {
				return nil, fmt.Errorf("directory lookup failed for user %q: %w", cfg.UserID, err)
			}
			if !exists {
				return nil, &ApproverResolutionError{ConfigType: cfg.Type, Reason: fmt.Sprintf("user %q does not exist", cfg.UserID)}
			}
			add(cfg.UserID)

		case ApproverTypeInitiator:
			add(instance.Initiator)

		case ApproverTypeRole:
			members, err := r.directory.RoleMembers(ctx, cfg.RoleID)
			if err != nil {
				return nil, fmt.Errorf("directory lookup failed for role %q: %w", cfg.RoleID, err)
			}
			if len(members) == 0 {
				return nil, &ApproverResolutionError{ConfigType: cfg.Type, Reason: fmt.Sprintf("role %q has no members", cfg.RoleID)}
			}
			for _, member := range members {
				add(member)
			}

		case ApproverTypeDepartmentLeader:
			leader, err := r.directory.DepartmentLeader(ctx, cfg.DepartmentID)
			if err != nil {
				return nil, fmt.Errorf("directory lookup failed for department %q: %w", cfg.DepartmentID, err)
			}
			if leader == "" {
				return nil, &ApproverResolutionError{ConfigType: cfg.Type, Reason: fmt.Sprintf("department %q has no leader", cfg.DepartmentID)}
			}
			add(leader)

		case ApproverTypeManager:
			manager, err := r.directory.ManagerOf(ctx, instance.Initiator)
			if err != nil {
				return nil, fmt.Errorf("directory lookup failed for manager of %q: %w", instance.Initiator, err)
			}
			if manager == "" {
				return nil, &ApproverResolutionError{ConfigType: cfg.Type, Reason: fmt.Sprintf("initiator %q has no manager", instance.Initiator)}
			}
			add(manager)

		default:
			return nil, &ApproverResolutionError{ConfigType: cfg.Type, Reason: "unknown approver config type"}
		}
	}

	if len(approvers) == 0 {
		return nil, &ApproverResolutionError{Reason: "resolved approver set is empty"}
	}
	return approvers, nil
}
