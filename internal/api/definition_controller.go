package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/auth"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/service"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// DefinitionController 流程定义管理接口
type DefinitionController struct {
	workflowSvc service.WorkflowService
	defRepo     repository.DefinitionRepository
}

// NewDefinitionController 创建流程定义控制器
func NewDefinitionController(workflowSvc service.WorkflowService, defRepo repository.DefinitionRepository) *DefinitionController {
	return &DefinitionController{
		workflowSvc: workflowSvc,
		defRepo:     defRepo,
	}
}

// Create 创建流程定义
// POST /api/v1/workflow/definitions
func (ctrl *DefinitionController) Create(c *gin.Context) {
	var req service.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	req.CreatedBy = auth.CurrentUser(c)

	def, err := ctrl.workflowSvc.CreateDefinition(c.Request.Context(), &req)
	if err != nil {
		var graphErr *workflow.GraphValidationError
		if errors.As(err, &graphErr) {
			Error(c, http.StatusBadRequest, "invalid workflow graph", graphErr.Error())
			return
		}
		Error(c, http.StatusInternalServerError, "failed to create definition", err.Error())
		return
	}
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: def})
}

// Get 查询流程定义详情
// GET /api/v1/workflow/definitions/:id
func (ctrl *DefinitionController) Get(c *gin.Context) {
	def, err := ctrl.defRepo.FindByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(c, http.StatusNotFound, "definition not found", "")
			return
		}
		Error(c, http.StatusInternalServerError, "failed to load definition", err.Error())
		return
	}
	Success(c, def)
}

// List 查询流程定义列表
// GET /api/v1/workflow/definitions
func (ctrl *DefinitionController) List(c *gin.Context) {
	filter := &repository.DefinitionFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if code := c.Query("business_object_code"); code != "" {
		filter.BusinessObjectCode = &code
	}
	if code := c.Query("code"); code != "" {
		filter.Code = &code
	}

	defs, err := ctrl.defRepo.FindAll(filter)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list definitions", err.Error())
		return
	}
	Success(c, defs)
}

// Publish 发布流程定义
// POST /api/v1/workflow/definitions/:id/publish
func (ctrl *DefinitionController) Publish(c *gin.Context) {
	err := ctrl.workflowSvc.PublishDefinition(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(c, http.StatusNotFound, "definition not found", "")
			return
		}
		var graphErr *workflow.GraphValidationError
		if errors.As(err, &graphErr) {
			Error(c, http.StatusBadRequest, "invalid workflow graph", graphErr.Error())
			return
		}
		Error(c, http.StatusConflict, "failed to publish definition", err.Error())
		return
	}
	Success(c, nil)
}

// Deprecate 废弃流程定义
// POST /api/v1/workflow/definitions/:id/deprecate
func (ctrl *DefinitionController) Deprecate(c *gin.Context) {
	err := ctrl.workflowSvc.DeprecateDefinition(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(c, http.StatusNotFound, "definition not found", "")
			return
		}
		Error(c, http.StatusConflict, "failed to deprecate definition", err.Error())
		return
	}
	Success(c, nil)
}
