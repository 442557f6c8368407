package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/model"
)

// Engine 审批流程执行引擎
// 负责实例的发起、任务的执行与图流转、撤回与终止
// 每次操作在单个数据库事务内完成状态读取、校验与写入:
// 实例行加 FOR UPDATE 锁串行化同一实例上的并发操作,
// 任务状态另有 compare-and-set 兜底,并发执行同一任务时只有一个调用方成功
type Engine struct {
	db        *gorm.DB
	resolver  *ApproverResolver
	evaluator *ConditionEvaluator
	graphs    *GraphCache
	notifier  Notifier
	logger    *logrus.Logger
}

// NewEngine 创建流程引擎
// directory 与 notifier 为注入的外部协作方
func NewEngine(db *gorm.DB, directory DirectoryLookup, notifier Notifier, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		db:        db,
		resolver:  NewApproverResolver(directory),
		evaluator: NewConditionEvaluator(logger),
		graphs:    NewGraphCache(),
		notifier:  notifier,
		logger:    logger,
	}
}

// StartRequest 发起流程请求
type StartRequest struct {
	BusinessObjectCode string
	BusinessID         string
	BusinessNo         string
	Initiator          string
	Title              string
	Description        string
	Priority           string
	Variables          map[string]interface{}
}

// StartWorkflow 发起流程实例
// 前置条件: 定义已发布且流程图可解析,否则不产生任何记录
// 从开始节点推进到首个审批节点,为每个解析出的审批人创建一条 pending 任务
func (e *Engine) StartWorkflow(ctx context.Context, def *model.WorkflowDefinition, req *StartRequest) (*model.WorkflowInstance, error) {
	if !def.IsPublished() {
		return nil, ErrDefinitionNotPublished
	}

	graph, err := e.graphs.Get(def.ID, def.GraphData)
	if err != nil {
		return nil, err
	}

	if req.Priority == "" {
		req.Priority = "normal"
	}
	variables := req.Variables
	if variables == nil {
		variables = make(map[string]interface{})
	}
	varData, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	now := time.Now()
	instance := &model.WorkflowInstance{
		ID:                 uuid.New().String(),
		DefinitionID:       def.ID,
		BusinessObjectCode: req.BusinessObjectCode,
		BusinessID:         req.BusinessID,
		BusinessNo:         req.BusinessNo,
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Initiator:          req.Initiator,
		Status:             model.InstanceStatusPendingApproval,
		Variables:          varData,
		StartedAt:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var notes []*Notification
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(instance).Error; err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}
		if err := e.advance(ctx, tx, graph, instance, graph.StartNode().ID, &notes); err != nil {
			return err
		}
		if err := tx.Save(instance).Error; err != nil {
			return fmt.Errorf("failed to update instance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(notes)
	e.logger.WithFields(logrus.Fields{
		"instance_id":     instance.ID,
		"definition_id":   def.ID,
		"business_object": req.BusinessObjectCode,
		"initiator":       req.Initiator,
	}).Info("workflow instance started")
	return instance, nil
}

// ExecuteTask 执行审批任务
// 前置条件: 任务 pending 且执行人为任务受理人
// 同意时按节点的 and/or 策略判断节点是否通过,通过后沿图推进;
// 拒绝时实例立即进入 rejected,剩余 pending 任务置为 skipped
func (e *Engine) ExecuteTask(ctx context.Context, taskID string, action string, actor string, comment string) (*model.WorkflowInstance, error) {
	if action != model.ApprovalActionApprove && action != model.ApprovalActionReject {
		return nil, ErrInvalidAction
	}

	var instance *model.WorkflowInstance
	var notes []*Notification
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.WorkflowTask
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("task %q not found: %w", taskID, err)
			}
			return fmt.Errorf("failed to load task: %w", err)
		}
		if task.Status != model.TaskStatusPending {
			return ErrTaskNotPending
		}
		if task.Assignee != actor {
			return ErrNotAssignee
		}

		// 锁定实例行,同一实例上的并发审批在此串行化;
		// READ COMMITTED 下会签节点的两个审批人同时提交时,
		// 后到的事务在此等待,随后看到前者已提交的任务状态与计数
		inst, err := e.lockInstance(tx, task.InstanceID)
		if err != nil {
			return err
		}
		if !inst.IsActive() {
			return ErrInstanceNotActive
		}

		// 任务状态 compare-and-set,并发执行同一任务时只有一个事务生效
		now := time.Now()
		newStatus := model.TaskStatusApproved
		if action == model.ApprovalActionReject {
			newStatus = model.TaskStatusRejected
		}
		res := tx.Model(&model.WorkflowTask{}).
			Where("id = ? AND status = ?", task.ID, model.TaskStatusPending).
			Updates(map[string]interface{}{
				"status":       newStatus,
				"completed_at": now,
				"completed_by": actor,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotPending
		}

		approval := &model.WorkflowApproval{
			ID:         uuid.New().String(),
			TaskID:     task.ID,
			InstanceID: inst.ID,
			NodeID:     task.NodeID,
			Approver:   actor,
			Action:     action,
			Comment:    comment,
			CreatedAt:  now,
		}
		if err := tx.Create(approval).Error; err != nil {
			return fmt.Errorf("failed to create approval record: %w", err)
		}

		inst.CompletedTasks++
		if inst.Status == model.InstanceStatusPendingApproval {
			inst.Status = model.InstanceStatusRunning
		}

		if action == model.ApprovalActionReject {
			// 任一拒绝即整体拒绝,不论节点策略
			skipped, err := e.skipPendingTasks(tx, inst.ID, now)
			if err != nil {
				return err
			}
			inst.CompletedTasks += skipped
			inst.Status = model.InstanceStatusRejected
			inst.CompletedAt = &now
			notes = append(notes, &Notification{
				Event:      EventInstanceCompleted,
				InstanceID: inst.ID,
				Status:     inst.Status,
				Title:      inst.Title,
				OccurredAt: now,
			})
		} else {
			graph, err := e.graphFor(tx, inst)
			if err != nil {
				return err
			}
			node := graph.Node(task.NodeID)
			if node == nil {
				return fmt.Errorf("node %q not found in definition %q", task.NodeID, inst.DefinitionID)
			}

			satisfied := false
			switch node.Properties.ApproveType {
			case ApproveTypeOr:
				// 或签: 首个同意即通过,剩余同节点任务置为 skipped
				skipped, err := e.skipPendingTasksAtNode(tx, inst.ID, node.ID, now)
				if err != nil {
					return err
				}
				inst.CompletedTasks += skipped
				satisfied = true
			default:
				// 会签: 该节点不再有 pending 任务时通过
				var pendingCount int64
				if err := tx.Model(&model.WorkflowTask{}).
					Where("instance_id = ? AND node_id = ? AND status = ?", inst.ID, node.ID, model.TaskStatusPending).
					Count(&pendingCount).Error; err != nil {
					return fmt.Errorf("failed to count pending tasks: %w", err)
				}
				satisfied = pendingCount == 0
			}

			if satisfied {
				if err := e.advance(ctx, tx, graph, inst, node.ID, &notes); err != nil {
					return err
				}
			}
		}

		inst.UpdatedAt = now
		if err := tx.Save(inst).Error; err != nil {
			return fmt.Errorf("failed to update instance: %w", err)
		}
		instance = inst
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(notes)
	e.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"instance_id": instance.ID,
		"action":      action,
		"actor":       actor,
		"status":      instance.Status,
	}).Info("workflow task executed")
	return instance, nil
}

// WithdrawInstance 发起人撤回实例
// 仅发起人可撤回活动中的实例,所有 pending 任务置为 skipped
func (e *Engine) WithdrawInstance(ctx context.Context, instanceID string, actor string) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := e.lockInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if inst.Initiator != actor {
			return ErrNotInitiator
		}
		if !inst.IsActive() {
			return ErrInstanceNotActive
		}

		now := time.Now()
		skipped, err := e.skipPendingTasks(tx, inst.ID, now)
		if err != nil {
			return err
		}

		res := tx.Model(&model.WorkflowInstance{}).
			Where("id = ? AND status IN ?", inst.ID, []string{model.InstanceStatusPendingApproval, model.InstanceStatusRunning}).
			Updates(map[string]interface{}{
				"status":          model.InstanceStatusCancelled,
				"completed_at":    now,
				"completed_tasks": inst.CompletedTasks + skipped,
				"updated_at":      now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update instance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInstanceNotActive
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"instance_id": instanceID,
		"actor":       actor,
	}).Info("workflow instance withdrawn")
	return nil
}

// TerminateInstance 特权终止实例
// 终态实例不可再次终止,其余状态均可
func (e *Engine) TerminateInstance(ctx context.Context, instanceID string, actor string, reason string) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := e.lockInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if inst.IsTerminal() {
			return ErrInstanceTerminal
		}

		now := time.Now()
		skipped, err := e.skipPendingTasks(tx, inst.ID, now)
		if err != nil {
			return err
		}

		res := tx.Model(&model.WorkflowInstance{}).
			Where("id = ? AND status IN ?", inst.ID, []string{model.InstanceStatusPendingApproval, model.InstanceStatusRunning}).
			Updates(map[string]interface{}{
				"status":           model.InstanceStatusTerminated,
				"terminated_by":    actor,
				"terminate_reason": reason,
				"completed_at":     now,
				"completed_tasks":  inst.CompletedTasks + skipped,
				"updated_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update instance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInstanceTerminal
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"instance_id": instanceID,
		"actor":       actor,
		"reason":      reason,
	}).Warn("workflow instance terminated")
	return nil
}

// ExpireTask 超时处理入口
// 引擎自身不驱动超时,由外部周期任务回调;
// 逾期任务置为 expired 并为同一受理人重新派发一条新任务
func (e *Engine) ExpireTask(ctx context.Context, taskID string) error {
	var notes []*Notification
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.WorkflowTask
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		if task.Status != model.TaskStatusPending {
			return ErrTaskNotPending
		}
		if task.DueDate == nil || task.DueDate.After(time.Now()) {
			return fmt.Errorf("task %q is not overdue", taskID)
		}

		inst, err := e.lockInstance(tx, task.InstanceID)
		if err != nil {
			return err
		}
		if !inst.IsActive() {
			return ErrInstanceNotActive
		}

		now := time.Now()
		res := tx.Model(&model.WorkflowTask{}).
			Where("id = ? AND status = ?", task.ID, model.TaskStatusPending).
			Updates(map[string]interface{}{
				"status":       model.TaskStatusExpired,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to expire task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotPending
		}

		graph, err := e.graphFor(tx, inst)
		if err != nil {
			return err
		}
		node := graph.Node(task.NodeID)
		if node == nil {
			return fmt.Errorf("node %q not found in definition %q", task.NodeID, inst.DefinitionID)
		}

		// 重新派发视为一条新任务,原任务保留为 expired 审计痕迹
		replacement, err := e.createTask(tx, inst, node, task.Assignee, now)
		if err != nil {
			return err
		}
		inst.TotalTasks++
		inst.CompletedTasks++
		inst.UpdatedAt = now
		if err := tx.Save(inst).Error; err != nil {
			return fmt.Errorf("failed to update instance: %w", err)
		}

		notes = append(notes, &Notification{
			Event:      EventTaskCreated,
			InstanceID: inst.ID,
			TaskID:     replacement.ID,
			NodeID:     node.ID,
			Assignee:   replacement.Assignee,
			Title:      inst.Title,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return err
	}

	e.dispatch(notes)
	return nil
}

// lockInstance 在事务内加行锁读取实例
// 同一实例上的并发操作在此串行化;
// sqlite 的语法不接受 FOR UPDATE,其写事务本身互斥,跳过加锁子句
func (e *Engine) lockInstance(tx *gorm.DB, instanceID string) (*model.WorkflowInstance, error) {
	query := tx
	if tx.Dialector.Name() != "sqlite" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var inst model.WorkflowInstance
	if err := query.Where("id = ?", instanceID).First(&inst).Error; err != nil {
		return nil, fmt.Errorf("failed to load instance: %w", err)
	}
	return &inst, nil
}

// advance 从已通过的节点沿图推进
// 条件节点逐条求值出边,取首个为真的边,无条件边作为默认分支;
// 到达审批节点时解析审批人并创建任务,到达结束节点时实例进入 approved
// 推进步数以节点总数为上限,防止畸形图把事务拖进死循环
func (e *Engine) advance(ctx context.Context, tx *gorm.DB, graph *Graph, inst *model.WorkflowInstance, fromNodeID string, notes *[]*Notification) error {
	variables := inst.VariableMap()
	current := fromNodeID

	for hops := 0; hops <= len(graph.nodes); hops++ {
		edge, err := e.chooseEdge(graph, current, variables)
		if err != nil {
			return err
		}
		target := graph.Node(edge.TargetNodeID)

		switch target.Type {
		case NodeTypeCondition:
			current = target.ID

		case NodeTypeApproval:
			approvers, err := e.resolver.Resolve(ctx, target.Properties.Approvers, inst)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, assignee := range approvers {
				task, err := e.createTask(tx, inst, target, assignee, now)
				if err != nil {
					return err
				}
				*notes = append(*notes, &Notification{
					Event:      EventTaskCreated,
					InstanceID: inst.ID,
					TaskID:     task.ID,
					NodeID:     target.ID,
					Assignee:   assignee,
					Title:      inst.Title,
					OccurredAt: now,
				})
			}
			inst.TotalTasks += len(approvers)
			inst.CurrentNode = target.ID
			return nil

		case NodeTypeEnd:
			now := time.Now()
			inst.Status = model.InstanceStatusApproved
			inst.CompletedAt = &now
			inst.CurrentNode = target.ID
			*notes = append(*notes, &Notification{
				Event:      EventInstanceCompleted,
				InstanceID: inst.ID,
				Status:     inst.Status,
				Title:      inst.Title,
				OccurredAt: now,
			})
			return nil

		default:
			return fmt.Errorf("cannot advance into node %q of type %q", target.ID, target.Type)
		}
	}
	return fmt.Errorf("graph traversal from node %q exceeded %d steps", fromNodeID, len(graph.nodes))
}

// chooseEdge 选择节点的下一条出边
// 带条件的边按定义顺序求值,首个为真的边胜出;
// 无条件边作为默认分支,都不满足时报错而不是悄悄停住
func (e *Engine) chooseEdge(graph *Graph, nodeID string, variables map[string]interface{}) (*Edge, error) {
	edges := graph.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return nil, &NoBranchMatchedError{NodeID: nodeID}
	}

	var fallback *Edge
	for _, edge := range edges {
		if edge.Condition == nil {
			if fallback == nil {
				fallback = edge
			}
			continue
		}
		if e.evaluator.Evaluate(edge.Condition, variables) {
			return edge, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, &NoBranchMatchedError{NodeID: nodeID}
}

// createTask 创建一条 pending 审批任务
func (e *Engine) createTask(tx *gorm.DB, inst *model.WorkflowInstance, node *Node, assignee string, now time.Time) (*model.WorkflowTask, error) {
	task := &model.WorkflowTask{
		ID:         uuid.New().String(),
		InstanceID: inst.ID,
		NodeID:     node.ID,
		NodeType:   string(node.Type),
		Assignee:   assignee,
		Status:     model.TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if node.Properties.DueInHours > 0 {
		due := now.Add(time.Duration(node.Properties.DueInHours) * time.Hour)
		task.DueDate = &due
	}
	if err := tx.Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// skipPendingTasks 将实例的所有 pending 任务置为 skipped,返回影响行数
func (e *Engine) skipPendingTasks(tx *gorm.DB, instanceID string, now time.Time) (int, error) {
	res := tx.Model(&model.WorkflowTask{}).
		Where("instance_id = ? AND status = ?", instanceID, model.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusSkipped,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to skip pending tasks: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// skipPendingTasksAtNode 将实例在指定节点的 pending 任务置为 skipped
func (e *Engine) skipPendingTasksAtNode(tx *gorm.DB, instanceID string, nodeID string, now time.Time) (int, error) {
	res := tx.Model(&model.WorkflowTask{}).
		Where("instance_id = ? AND node_id = ? AND status = ?", instanceID, nodeID, model.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusSkipped,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to skip sibling tasks: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// graphFor 加载实例所属定义的流程图
func (e *Engine) graphFor(tx *gorm.DB, inst *model.WorkflowInstance) (*Graph, error) {
	var def model.WorkflowDefinition
	if err := tx.Where("id = ?", inst.DefinitionID).First(&def).Error; err != nil {
		return nil, fmt.Errorf("failed to load definition %q: %w", inst.DefinitionID, err)
	}
	return e.graphs.Get(def.ID, def.GraphData)
}

// dispatch 事务提交后派发通知
func (e *Engine) dispatch(notes []*Notification) {
	for _, n := range notes {
		e.notifier.Notify(n)
	}
}
