package workflow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

func marshalGraph(t *testing.T, graph map[string]interface{}) []byte {
	data, err := json.Marshal(graph)
	require.NoError(t, err)
	return data
}

// TestParseGraph_Valid 测试合法流程图解析
func TestParseGraph_Valid(t *testing.T) {
	data := marshalGraph(t, map[string]interface{}{
		"nodes": []map[string]interface{}{
			{"id": "start", "type": "start"},
			{"id": "a1", "type": "approval", "properties": map[string]interface{}{
				"approveType": "and",
				"approvers":   []map[string]interface{}{{"type": "initiator"}},
			}},
			{"id": "end", "type": "end"},
		},
		"edges": []map[string]interface{}{
			{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
			{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
		},
	})

	graph, err := workflow.ParseGraph(data)
	require.NoError(t, err)
	assert.Equal(t, "start", graph.StartNode().ID)
	assert.NotNil(t, graph.Node("a1"))
	assert.Nil(t, graph.Node("missing"))
	assert.Len(t, graph.OutgoingEdges("start"), 1)
}

// TestParseGraph_Invalid 测试各类非法流程图
func TestParseGraph_Invalid(t *testing.T) {
	approval := map[string]interface{}{
		"id": "a1", "type": "approval", "properties": map[string]interface{}{
			"approveType": "or",
			"approvers":   []map[string]interface{}{{"type": "initiator"}},
		},
	}

	cases := []struct {
		name  string
		graph map[string]interface{}
	}{
		{
			name: "无开始节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{approval, {"id": "end", "type": "end"}},
				"edges": []map[string]interface{}{{"id": "e1", "source_node_id": "a1", "target_node_id": "end"}},
			},
		},
		{
			name: "多个开始节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "s1", "type": "start"}, {"id": "s2", "type": "start"}, {"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "s1", "target_node_id": "end"},
					{"id": "e2", "source_node_id": "s2", "target_node_id": "end"},
				},
			},
		},
		{
			name: "无结束节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{{"id": "start", "type": "start"}, approval},
				"edges": []map[string]interface{}{{"id": "e1", "source_node_id": "start", "target_node_id": "a1"}},
			},
		},
		{
			name: "审批节点缺少审批策略",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"},
					{"id": "a1", "type": "approval", "properties": map[string]interface{}{
						"approvers": []map[string]interface{}{{"type": "initiator"}},
					}},
					{"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
					{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
				},
			},
		},
		{
			name: "审批节点无审批人",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"},
					{"id": "a1", "type": "approval", "properties": map[string]interface{}{"approveType": "and"}},
					{"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
					{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
				},
			},
		},
		{
			name: "边引用不存在的节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"}, {"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "ghost"},
				},
			},
		},
		{
			name: "存在不可达节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"}, approval, {"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "end"},
					{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
				},
			},
		},
		{
			name: "审批节点到不了结束节点",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"}, approval, {"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
					{"id": "e2", "source_node_id": "start", "target_node_id": "end"},
				},
			},
		},
		{
			name: "条件节点成环",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"},
					{"id": "c1", "type": "condition"},
					{"id": "c2", "type": "condition"},
					approval,
					{"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "c1"},
					{"id": "e2", "source_node_id": "c1", "target_node_id": "c2", "condition": map[string]interface{}{
						"field": "amount", "operator": "gt", "value": 0,
					}},
					{"id": "e3", "source_node_id": "c2", "target_node_id": "c1", "condition": map[string]interface{}{
						"field": "amount", "operator": "gt", "value": 0,
					}},
					{"id": "e4", "source_node_id": "c1", "target_node_id": "a1"},
					{"id": "e5", "source_node_id": "a1", "target_node_id": "end"},
				},
			},
		},
		{
			name: "条件节点自环",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"},
					{"id": "c1", "type": "condition"},
					approval,
					{"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "c1"},
					{"id": "e2", "source_node_id": "c1", "target_node_id": "c1", "condition": map[string]interface{}{
						"field": "amount", "operator": "gt", "value": 0,
					}},
					{"id": "e3", "source_node_id": "c1", "target_node_id": "a1"},
					{"id": "e4", "source_node_id": "a1", "target_node_id": "end"},
				},
			},
		},
		{
			name: "未知节点类型",
			graph: map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"id": "start", "type": "start"}, {"id": "x", "type": "timer"}, {"id": "end", "type": "end"},
				},
				"edges": []map[string]interface{}{
					{"id": "e1", "source_node_id": "start", "target_node_id": "x"},
					{"id": "e2", "source_node_id": "x", "target_node_id": "end"},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := workflow.ParseGraph(marshalGraph(t, tc.graph))
			require.Error(t, err)
			var graphErr *workflow.GraphValidationError
			assert.ErrorAs(t, err, &graphErr)
		})
	}
}

// TestParseGraph_EmptyAndMalformed 测试空数据与非法 JSON
func TestParseGraph_EmptyAndMalformed(t *testing.T) {
	_, err := workflow.ParseGraph(nil)
	assert.Error(t, err)

	_, err = workflow.ParseGraph([]byte("{not json"))
	assert.Error(t, err)
}

// TestGraphCache 测试流程图缓存
func TestGraphCache(t *testing.T) {
	data := marshalGraph(t, map[string]interface{}{
		"nodes": []map[string]interface{}{
			{"id": "start", "type": "start"},
			{"id": "a1", "type": "approval", "properties": map[string]interface{}{
				"approveType": "or",
				"approvers":   []map[string]interface{}{{"type": "initiator"}},
			}},
			{"id": "end", "type": "end"},
		},
		"edges": []map[string]interface{}{
			{"id": "e1", "source_node_id": "start", "target_node_id": "a1"},
			{"id": "e2", "source_node_id": "a1", "target_node_id": "end"},
		},
	})

	cache := workflow.NewGraphCache()
	first, err := cache.Get("def-001", data)
	require.NoError(t, err)

	// 第二次命中缓存,返回同一对象
	second, err := cache.Get("def-001", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
