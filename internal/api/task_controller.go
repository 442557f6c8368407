package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/auth"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/service"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// TaskController 审批任务接口
type TaskController struct {
	workflowSvc service.WorkflowService
	querySvc    service.QueryService
}

// NewTaskController 创建审批任务控制器
func NewTaskController(workflowSvc service.WorkflowService, querySvc service.QueryService) *TaskController {
	return &TaskController{
		workflowSvc: workflowSvc,
		querySvc:    querySvc,
	}
}

// actionRequest 审批动作请求
type actionRequest struct {
	Comment string `json:"comment"`
}

// Pending 查询当前用户的待办任务
// GET /api/v1/workflow/tasks/pending
func (ctrl *TaskController) Pending(c *gin.Context) {
	tasks, err := ctrl.querySvc.ListPendingTasks(auth.CurrentUser(c))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list pending tasks", err.Error())
		return
	}
	Success(c, tasks)
}

// Approve 审批同意
// POST /api/v1/workflow/tasks/:id/approve
func (ctrl *TaskController) Approve(c *gin.Context) {
	ctrl.execute(c, true)
}

// Reject 审批拒绝
// POST /api/v1/workflow/tasks/:id/reject
func (ctrl *TaskController) Reject(c *gin.Context) {
	ctrl.execute(c, false)
}

// execute 执行审批动作并映射错误
func (ctrl *TaskController) execute(c *gin.Context, approve bool) {
	var req actionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	taskID := c.Param("id")
	actor := auth.CurrentUser(c)

	var err error
	var instance interface{}
	if approve {
		instance, err = ctrl.workflowSvc.Approve(c.Request.Context(), taskID, actor, req.Comment)
	} else {
		instance, err = ctrl.workflowSvc.Reject(c.Request.Context(), taskID, actor, req.Comment)
	}
	if err != nil {
		writeTaskActionError(c, err)
		return
	}
	Success(c, instance)
}

// Approvals 查询任务的审批轨迹
// GET /api/v1/workflow/tasks/:id/approvals
func (ctrl *TaskController) Approvals(c *gin.Context) {
	approvals, err := ctrl.querySvc.GetApprovalTrail(c.Param("id"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load approvals", err.Error())
		return
	}
	Success(c, approvals)
}

// writeTaskActionError 任务操作错误到 HTTP 响应的映射
func writeTaskActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		Error(c, http.StatusNotFound, "task not found", "")
	case errors.Is(err, workflow.ErrTaskNotPending):
		Error(c, http.StatusConflict, "task is not pending", err.Error())
	case errors.Is(err, workflow.ErrNotAssignee):
		Error(c, http.StatusForbidden, "not the task assignee", err.Error())
	case errors.Is(err, workflow.ErrInstanceNotActive):
		Error(c, http.StatusConflict, "instance is not active", err.Error())
	case errors.Is(err, workflow.ErrInvalidAction):
		Error(c, http.StatusBadRequest, "invalid action", err.Error())
	default:
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
		Error(c, http.StatusInternalServerError, "operation failed", err.Error())
	}
}
