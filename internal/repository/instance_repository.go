package repository

import (
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"gorm.io/gorm"
)

// InstanceRepository 流程实例仓储接口
type InstanceRepository interface {
	FindByID(id string) (*model.WorkflowInstance, error)
	FindByFilter(filter *InstanceFilter, page int, pageSize int) ([]*model.WorkflowInstance, int64, error)
	FindByBusiness(businessObjectCode string, businessID string) ([]*model.WorkflowInstance, error)
}

// InstanceFilter 流程实例查询过滤器
type InstanceFilter struct {
	Status             *string
	BusinessObjectCode *string
	Initiator          *string
	DefinitionID       *string
}

// instanceRepository 流程实例仓储实现
type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository 创建流程实例仓储
func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// FindByID 根据 ID 查找流程实例
func (r *instanceRepository) FindByID(id string) (*model.WorkflowInstance, error) {
	var instance model.WorkflowInstance
	if err := r.db.Where("id = ?", id).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// FindByFilter 根据过滤器分页查找流程实例
func (r *instanceRepository) FindByFilter(filter *InstanceFilter, page int, pageSize int) ([]*model.WorkflowInstance, int64, error) {
	query := r.db.Model(&model.WorkflowInstance{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.BusinessObjectCode != nil {
			query = query.Where("business_object_code = ?", *filter.BusinessObjectCode)
		}
		if filter.Initiator != nil {
			query = query.Where("initiator = ?", *filter.Initiator)
		}
		if filter.DefinitionID != nil {
			query = query.Where("definition_id = ?", *filter.DefinitionID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var instances []*model.WorkflowInstance
	err := query.Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&instances).Error
	return instances, total, err
}

// FindByBusiness 查找业务记录关联的全部实例
func (r *instanceRepository) FindByBusiness(businessObjectCode string, businessID string) ([]*model.WorkflowInstance, error) {
	var instances []*model.WorkflowInstance
	err := r.db.Where("business_object_code = ? AND business_id = ?", businessObjectCode, businessID).
		Order("started_at DESC").
		Find(&instances).Error
	return instances, err
}
