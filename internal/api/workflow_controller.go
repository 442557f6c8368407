package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/auth"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/repository"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/service"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// WorkflowController 流程实例接口
type WorkflowController struct {
	workflowSvc service.WorkflowService
	querySvc    service.QueryService
}

// NewWorkflowController 创建流程实例控制器
func NewWorkflowController(workflowSvc service.WorkflowService, querySvc service.QueryService) *WorkflowController {
	return &WorkflowController{
		workflowSvc: workflowSvc,
		querySvc:    querySvc,
	}
}

// terminateRequest 终止实例请求
type terminateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Start 发起流程
// POST /api/v1/workflow/instances
func (ctrl *WorkflowController) Start(c *gin.Context) {
	var req service.StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	req.Initiator = auth.CurrentUser(c)

	instance, err := ctrl.workflowSvc.Start(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, workflow.ErrDefinitionNotPublished) {
			Error(c, http.StatusNotFound, "no published workflow for business object", err.Error())
			return
		}
		var resolveErr *workflow.ApproverResolutionError
		if errors.As(err, &resolveErr) {
			Error(c, http.StatusUnprocessableEntity, "failed to resolve approvers", resolveErr.Error())
			return
		}
		var branchErr *workflow.NoBranchMatchedError
		if errors.As(err, &branchErr) {
			Error(c, http.StatusUnprocessableEntity, "no branch matched", branchErr.Error())
			return
		}
		Error(c, http.StatusInternalServerError, "failed to start workflow", err.Error())
		return
	}
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: instance})
}

// Get 查询实例详情
// GET /api/v1/workflow/instances/:id
func (ctrl *WorkflowController) Get(c *gin.Context) {
	detail, err := ctrl.querySvc.GetInstance(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(c, http.StatusNotFound, "instance not found", "")
			return
		}
		Error(c, http.StatusInternalServerError, "failed to load instance", err.Error())
		return
	}
	Success(c, detail)
}

// List 分页查询实例
// GET /api/v1/workflow/instances
func (ctrl *WorkflowController) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	filter := &repository.InstanceFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if code := c.Query("business_object_code"); code != "" {
		filter.BusinessObjectCode = &code
	}
	if initiator := c.Query("initiator"); initiator != "" {
		filter.Initiator = &initiator
	}

	instances, total, err := ctrl.querySvc.ListInstances(filter, page, pageSize)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list instances", err.Error())
		return
	}
	Paginated(c, instances, buildPagination(page, pageSize, total))
}

// Withdraw 发起人撤回实例
// POST /api/v1/workflow/instances/:id/withdraw
func (ctrl *WorkflowController) Withdraw(c *gin.Context) {
	err := ctrl.workflowSvc.Withdraw(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
	if err != nil {
		writeInstanceActionError(c, err)
		return
	}
	Success(c, nil)
}

// Terminate 特权终止实例
// POST /api/v1/workflow/instances/:id/terminate
func (ctrl *WorkflowController) Terminate(c *gin.Context) {
	var req terminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	err := ctrl.workflowSvc.Terminate(c.Request.Context(), c.Param("id"), auth.CurrentUser(c), req.Reason)
	if err != nil {
		writeInstanceActionError(c, err)
		return
	}
	Success(c, nil)
}

// Approvals 查询实例的完整审批轨迹
// GET /api/v1/workflow/instances/:id/approvals
func (ctrl *WorkflowController) Approvals(c *gin.Context) {
	approvals, err := ctrl.querySvc.GetInstanceApprovals(c.Param("id"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load approvals", err.Error())
		return
	}
	Success(c, approvals)
}

// writeInstanceActionError 实例操作错误到 HTTP 响应的映射
func writeInstanceActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		Error(c, http.StatusNotFound, "instance not found", "")
	case errors.Is(err, workflow.ErrNotInitiator):
		Error(c, http.StatusForbidden, "only the initiator can withdraw", err.Error())
	case errors.Is(err, workflow.ErrInstanceNotActive), errors.Is(err, workflow.ErrInstanceTerminal):
		Error(c, http.StatusConflict, "instance is not active", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "operation failed", err.Error())
	}
}

// parsePagination 解析分页参数,page 从 1 开始
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// buildPagination 构造分页信息
func buildPagination(page int, pageSize int, total int64) PaginationInfo {
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))
	return PaginationInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}
