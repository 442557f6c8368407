package repository

import (
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
	"gorm.io/gorm"
)

// DefinitionRepository 流程定义仓储接口
type DefinitionRepository interface {
	Save(def *model.WorkflowDefinition) error
	FindByID(id string) (*model.WorkflowDefinition, error)
	FindPublishedByBusinessObject(businessObjectCode string) (*model.WorkflowDefinition, error)
	FindAll(filter *DefinitionFilter) ([]*model.WorkflowDefinition, error)
}

// DefinitionFilter 流程定义查询过滤器
type DefinitionFilter struct {
	Status             *string
	BusinessObjectCode *string
	Code               *string
}

// definitionRepository 流程定义仓储实现
type definitionRepository struct {
	db *gorm.DB
}

// NewDefinitionRepository 创建流程定义仓储
func NewDefinitionRepository(db *gorm.DB) DefinitionRepository {
	return &definitionRepository{db: db}
}

// Save 保存流程定义
func (r *definitionRepository) Save(def *model.WorkflowDefinition) error {
	return r.db.Save(def).Error
}

// FindByID 根据 ID 查找流程定义
func (r *definitionRepository) FindByID(id string) (*model.WorkflowDefinition, error) {
	var def model.WorkflowDefinition
	if err := r.db.Where("id = ?", id).First(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// FindPublishedByBusinessObject 查找业务对象当前已发布的定义
// 同一业务对象存在多个已发布版本时取最新版本
func (r *definitionRepository) FindPublishedByBusinessObject(businessObjectCode string) (*model.WorkflowDefinition, error) {
	var def model.WorkflowDefinition
	err := r.db.Where("business_object_code = ? AND status = ?", businessObjectCode, model.DefinitionStatusPublished).
		Order("version DESC").
		First(&def).Error
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// FindAll 根据过滤器查找流程定义
func (r *definitionRepository) FindAll(filter *DefinitionFilter) ([]*model.WorkflowDefinition, error) {
	var defs []*model.WorkflowDefinition
	query := r.db.Model(&model.WorkflowDefinition{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.BusinessObjectCode != nil {
			query = query.Where("business_object_code = ?", *filter.BusinessObjectCode)
		}
		if filter.Code != nil {
			query = query.Where("code = ?", *filter.Code)
		}
	}

	err := query.Order("created_at DESC").Find(&defs).Error
	return defs, err
}
