package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
)

// GormDirectory 基于本地组织表的目录查询实现
// 实现 workflow.DirectoryLookup,生产部署可替换为 HR 系统客户端
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory 创建目录查询
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// UserExists 判断用户是否存在且在职
func (d *GormDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query user %q: %w", userID, err)
	}
	return count > 0, nil
}

// RoleMembers 查询角色的在职成员
func (d *GormDirectory) RoleMembers(ctx context.Context, roleID string) ([]string, error) {
	var members []string
	err := d.db.WithContext(ctx).Model(&model.RoleMember{}).
		Joins("JOIN users ON users.id = role_members.user_id AND users.active = ?", true).
		Where("role_members.role_id = ?", roleID).
		Order("role_members.created_at ASC").
		Pluck("role_members.user_id", &members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query members of role %q: %w", roleID, err)
	}
	return members, nil
}

// DepartmentLeader 查询部门负责人
func (d *GormDirectory) DepartmentLeader(ctx context.Context, departmentID string) (string, error) {
	var dept model.Department
	err := d.db.WithContext(ctx).Where("id = ?", departmentID).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query department %q: %w", departmentID, err)
	}
	return dept.LeaderID, nil
}

// ManagerOf 查询用户的直属上级
func (d *GormDirectory) ManagerOf(ctx context.Context, userID string) (string, error) {
	var user model.User
	err := d.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query user %q: %w", userID, err)
	}
	return user.ManagerID, nil
}
