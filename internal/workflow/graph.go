package workflow

import (
	"encoding/json"
	"fmt"
	"sync"
)

// NodeType 流程节点类型
type NodeType string

const (
	NodeTypeStart     NodeType = "start"     // 开始节点
	NodeTypeApproval  NodeType = "approval"  // 审批节点
	NodeTypeCondition NodeType = "condition" // 条件节点
	NodeTypeEnd       NodeType = "end"       // 结束节点
)

// 审批策略
const (
	ApproveTypeAnd = "and" // 会签: 所有审批人同意后节点通过
	ApproveTypeOr  = "or"  // 或签: 任一审批人同意后节点通过
)

// ApproverConfig 审批人配置
// 按 Type 区分的标签变体,由 ApproverResolver 解析为具体用户
type ApproverConfig struct {
	Type         string `json:"type"` // user/initiator/role/department_leader/manager
	UserID       string `json:"user_id,omitempty"`
	RoleID       string `json:"role_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

// NodeProperties 节点属性
type NodeProperties struct {
	Name        string           `json:"name,omitempty"`
	ApproveType string           `json:"approveType,omitempty"` // and/or,审批节点必填
	Approvers   []ApproverConfig `json:"approvers,omitempty"`   // 审批节点必填
	DueInHours  int              `json:"dueInHours,omitempty"`  // 任务截止时长,0 表示不设截止
}

// Node 流程节点
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Properties NodeProperties `json:"properties"`
}

// Condition 边上的条件表达式
type Condition struct {
	Field    string      `json:"field"`    // 点分路径,对实例变量求值
	Operator string      `json:"operator"` // eq/ne/gt/ge/lt/le/in/contains
	Value    interface{} `json:"value"`
}

// Edge 流程边
type Edge struct {
	ID           string     `json:"id"`
	SourceNodeID string     `json:"source_node_id"`
	TargetNodeID string     `json:"target_node_id"`
	Condition    *Condition `json:"condition,omitempty"`
}

// graphData graph_data 的序列化结构
type graphData struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Graph 解析后的流程图
// 只读结构,每次引擎操作从 graph_data 重建或走缓存
type Graph struct {
	nodes    map[string]*Node
	outgoing map[string][]*Edge
	startID  string
}

// ParseGraph 解析并校验 graph_data
// 校验失败返回 *GraphValidationError
func ParseGraph(data []byte) (*Graph, error) {
	if len(data) == 0 {
		return nil, &GraphValidationError{Reason: "graph data is empty"}
	}

	var gd graphData
	if err := json.Unmarshal(data, &gd); err != nil {
		return nil, &GraphValidationError{Reason: fmt.Sprintf("malformed graph data: %v", err)}
	}

	g := &Graph{
		nodes:    make(map[string]*Node, len(gd.Nodes)),
		outgoing: make(map[string][]*Edge, len(gd.Nodes)),
	}

	// 1. 节点索引与类型校验
	endCount := 0
	for _, node := range gd.Nodes {
		if node.ID == "" {
			return nil, &GraphValidationError{Reason: "node without ID"}
		}
		if _, exists := g.nodes[node.ID]; exists {
			return nil, &GraphValidationError{Reason: fmt.Sprintf("duplicate node ID %q", node.ID)}
		}
		switch node.Type {
		case NodeTypeStart:
			if g.startID != "" {
				return nil, &GraphValidationError{Reason: "more than one start node"}
			}
			g.startID = node.ID
		case NodeTypeEnd:
			endCount++
		case NodeTypeApproval:
			if node.Properties.ApproveType != ApproveTypeAnd && node.Properties.ApproveType != ApproveTypeOr {
				return nil, &GraphValidationError{Reason: fmt.Sprintf("approval node %q missing or invalid approveType", node.ID)}
			}
			if len(node.Properties.Approvers) == 0 {
				return nil, &GraphValidationError{Reason: fmt.Sprintf("approval node %q has no approvers", node.ID)}
			}
		case NodeTypeCondition:
			// 条件通过出边表达,节点本身无必填属性
		default:
			return nil, &GraphValidationError{Reason: fmt.Sprintf("node %q has unknown type %q", node.ID, node.Type)}
		}
		g.nodes[node.ID] = node
	}
	if g.startID == "" {
		return nil, &GraphValidationError{Reason: "no start node"}
	}
	if endCount == 0 {
		return nil, &GraphValidationError{Reason: "no end node"}
	}

	// 2. 边引用校验
	for _, edge := range gd.Edges {
		if _, exists := g.nodes[edge.SourceNodeID]; !exists {
			return nil, &GraphValidationError{Reason: fmt.Sprintf("edge %q references unknown source node %q", edge.ID, edge.SourceNodeID)}
		}
		if _, exists := g.nodes[edge.TargetNodeID]; !exists {
			return nil, &GraphValidationError{Reason: fmt.Sprintf("edge %q references unknown target node %q", edge.ID, edge.TargetNodeID)}
		}
		g.outgoing[edge.SourceNodeID] = append(g.outgoing[edge.SourceNodeID], edge)
	}

	// 3. 可达性校验: 所有节点必须从开始节点可达
	reachable := g.reachableFrom(g.startID)
	for id := range g.nodes {
		if !reachable[id] {
			return nil, &GraphValidationError{Reason: fmt.Sprintf("node %q is unreachable from start", id)}
		}
	}

	// 4. 每个审批节点必须能到达某个结束节点
	for id, node := range g.nodes {
		if node.Type != NodeTypeApproval {
			continue
		}
		if !g.canReachEnd(id) {
			return nil, &GraphValidationError{Reason: fmt.Sprintf("approval node %q cannot reach an end node", id)}
		}
	}

	// 5. 条件节点之间不允许成环
	// 条件节点在一次推进内连续穿越,成环的图遍历无法终止
	if g.hasConditionCycle() {
		return nil, &GraphValidationError{Reason: "condition nodes form a cycle"}
	}

	return g, nil
}

// hasConditionCycle 检测仅由条件节点构成的环
// 只考察条件节点之间的边,经过审批节点的回路由人工动作打断,不在此限
func (g *Graph) hasConditionCycle() bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = visiting
		for _, edge := range g.outgoing[id] {
			target := g.nodes[edge.TargetNodeID]
			if target.Type != NodeTypeCondition {
				continue
			}
			switch state[target.ID] {
			case visiting:
				return true
			case unvisited:
				if visit(target.ID) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for id, node := range g.nodes {
		if node.Type != NodeTypeCondition || state[id] != unvisited {
			continue
		}
		if visit(id) {
			return true
		}
	}
	return false
}

// Node 根据 ID 查找节点,不存在时返回 nil
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// StartNode 返回开始节点
func (g *Graph) StartNode() *Node {
	return g.nodes[g.startID]
}

// OutgoingEdges 返回节点的出边,保持定义中的顺序
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	return g.outgoing[nodeID]
}

// reachableFrom 从指定节点出发的可达节点集合
func (g *Graph) reachableFrom(startID string) map[string]bool {
	visited := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range g.outgoing[current] {
			if !visited[edge.TargetNodeID] {
				visited[edge.TargetNodeID] = true
				queue = append(queue, edge.TargetNodeID)
			}
		}
	}
	return visited
}

// canReachEnd 判断从指定节点能否到达结束节点
func (g *Graph) canReachEnd(nodeID string) bool {
	for id := range g.reachableFrom(nodeID) {
		if g.nodes[id].Type == NodeTypeEnd {
			return true
		}
	}
	return false
}

// GraphCache 按定义 ID 缓存解析结果
// 已发布定义的 graph_data 不可变,缓存无需失效机制
type GraphCache struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewGraphCache 创建流程图缓存
func NewGraphCache() *GraphCache {
	return &GraphCache{graphs: make(map[string]*Graph)}
}

// Get 获取定义对应的流程图,未缓存时解析并缓存
func (c *GraphCache) Get(definitionID string, data []byte) (*Graph, error) {
	c.mu.RLock()
	g, ok := c.graphs[definitionID]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}

	g, err := ParseGraph(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.graphs[definitionID] = g
	c.mu.Unlock()
	return g, nil
}
