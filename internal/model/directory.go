package model

import "time"

// User 组织用户数据模型
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	DepartmentID string    `gorm:"type:varchar(64);index" json:"department_id"`
	ManagerID    string    `gorm:"type:varchar(64);index" json:"manager_id"` // 直属上级
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Role 角色数据模型
type Role struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}

// RoleMember 角色成员关系
type RoleMember struct {
	RoleID    string    `gorm:"primaryKey;type:varchar(64)" json:"role_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (RoleMember) TableName() string {
	return "role_members"
}

// Department 部门数据模型
type Department struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	LeaderID  string    `gorm:"type:varchar(64)" json:"leader_id"` // 部门负责人
	ParentID  string    `gorm:"type:varchar(64);index" json:"parent_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}
