package workflow

import (
	"errors"
	"fmt"
)

// 引擎业务规则错误
// 预期内的规则违反通过哨兵错误返回给调用方,不使用 panic
var (
	ErrDefinitionNotPublished = errors.New("workflow definition is not published")
	ErrTaskNotPending         = errors.New("task is not pending")
	ErrNotAssignee            = errors.New("actor is not the task assignee")
	ErrNotInitiator           = errors.New("actor is not the instance initiator")
	ErrInstanceNotActive      = errors.New("instance is not active")
	ErrInstanceTerminal       = errors.New("instance is already in a terminal status")
	ErrInvalidAction          = errors.New("action must be approve or reject")
)

// GraphValidationError 流程图结构校验错误
type GraphValidationError struct {
	Reason string
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("invalid workflow graph: %s", e.Reason)
}

// ApproverResolutionError 审批人解析错误
// 引擎不允许创建审批人为空的任务,解析失败将中断本次流转
type ApproverResolutionError struct {
	ConfigType string
	Reason     string
}

func (e *ApproverResolutionError) Error() string {
	if e.ConfigType == "" {
		return fmt.Sprintf("failed to resolve approvers: %s", e.Reason)
	}
	return fmt.Sprintf("failed to resolve approvers for config %q: %s", e.ConfigType, e.Reason)
}

// NoBranchMatchedError 条件节点没有可走的出边
type NoBranchMatchedError struct {
	NodeID string
}

func (e *NoBranchMatchedError) Error() string {
	return fmt.Sprintf("no outgoing edge matched at node %q", e.NodeID)
}
