package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
)

// AuditLogService 审计日志服务接口
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details string) error
	ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	repo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(repo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{repo: repo}
}

// RecordAction 记录一次操作
func (s *auditLogService) RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details string) error {
	log := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestIDFromContext(ctx),
		Details:      []byte(details),
		CreatedAt:    time.Now(),
	}
	if err := log.Validate(); err != nil {
		return err
	}
	return s.repo.Save(log)
}

// ListByResource 查询资源的操作记录
func (s *auditLogService) ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error) {
	return s.repo.FindByResource(resourceType, resourceID)
}

type contextKey string

// RequestIDKey 请求 ID 的 context 键
const RequestIDKey contextKey = "request_id"

// requestIDFromContext 从 context 提取请求 ID
func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
