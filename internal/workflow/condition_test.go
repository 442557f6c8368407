package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// TestEvaluate_Comparison 测试数值比较操作符
func TestEvaluate_Comparison(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)
	variables := map[string]interface{}{"amount": float64(15000)}

	cases := []struct {
		operator string
		value    interface{}
		expected bool
	}{
		{"gt", 10000, true},
		{"gt", 15000, false},
		{"ge", 15000, true},
		{"lt", 20000, true},
		{"lt", 15000, false},
		{"le", 15000, true},
		{"eq", 15000, true},
		{"ne", 15000, false},
		{"ne", 9999, true},
	}
	for _, tc := range cases {
		cond := &workflow.Condition{Field: "amount", Operator: tc.operator, Value: tc.value}
		assert.Equal(t, tc.expected, e.Evaluate(cond, variables), "amount %s %v", tc.operator, tc.value)
	}
}

// TestEvaluate_NumericString 测试字符串字面量参与数值比较
func TestEvaluate_NumericString(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)
	variables := map[string]interface{}{"amount": float64(15000)}

	cond := &workflow.Condition{Field: "amount", Operator: "gt", Value: "10000"}
	assert.True(t, e.Evaluate(cond, variables))
}

// TestEvaluate_DottedPath 测试点分路径字段
func TestEvaluate_DottedPath(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)
	variables := map[string]interface{}{
		"applicant": map[string]interface{}{
			"department": map[string]interface{}{"id": float64(5)},
		},
	}

	cond := &workflow.Condition{Field: "applicant.department.id", Operator: "eq", Value: 5}
	assert.True(t, e.Evaluate(cond, variables))

	cond = &workflow.Condition{Field: "applicant.department.id", Operator: "eq", Value: 6}
	assert.False(t, e.Evaluate(cond, variables))
}

// TestEvaluate_MissingField 测试字段不存在时求值为 false
func TestEvaluate_MissingField(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)

	cond := &workflow.Condition{Field: "missing.field", Operator: "eq", Value: 1}
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"amount": 1}))
}

// TestEvaluate_UnknownOperator 测试未知操作符求值为 false
func TestEvaluate_UnknownOperator(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)

	cond := &workflow.Condition{Field: "amount", Operator: "between", Value: 1}
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"amount": 1}))
}

// TestEvaluate_NonNumericComparison 测试非数值操作数的大小比较求值为 false
func TestEvaluate_NonNumericComparison(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)

	cond := &workflow.Condition{Field: "category", Operator: "gt", Value: 100}
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"category": "laptop"}))
}

// TestEvaluate_In 测试 in 操作符
func TestEvaluate_In(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)
	variables := map[string]interface{}{"category": "laptop"}

	cond := &workflow.Condition{
		Field:    "category",
		Operator: "in",
		Value:    []interface{}{"laptop", "monitor"},
	}
	assert.True(t, e.Evaluate(cond, variables))

	cond.Value = []interface{}{"desk", "chair"}
	assert.False(t, e.Evaluate(cond, variables))

	// 值不是列表时求值为 false
	cond.Value = "laptop"
	assert.False(t, e.Evaluate(cond, variables))
}

// TestEvaluate_Contains 测试 contains 操作符
func TestEvaluate_Contains(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)

	// 字符串包含子串
	cond := &workflow.Condition{Field: "title", Operator: "contains", Value: "紧急"}
	assert.True(t, e.Evaluate(cond, map[string]interface{}{"title": "紧急采购申请"}))
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"title": "日常领用"}))

	// 列表包含元素
	cond = &workflow.Condition{Field: "tags", Operator: "contains", Value: "it"}
	assert.True(t, e.Evaluate(cond, map[string]interface{}{"tags": []interface{}{"it", "hr"}}))
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"tags": []interface{}{"hr"}}))
}

// TestEvaluateAll 测试条件列表按逻辑与求值
func TestEvaluateAll(t *testing.T) {
	e := workflow.NewConditionEvaluator(nil)
	variables := map[string]interface{}{"amount": float64(500), "urgent": "yes"}

	conds := []workflow.Condition{
		{Field: "amount", Operator: "lt", Value: 1000},
		{Field: "urgent", Operator: "eq", Value: "yes"},
	}
	assert.True(t, e.EvaluateAll(conds, variables))

	conds[0].Value = 100
	assert.False(t, e.EvaluateAll(conds, variables))
}

// TestLookupPath 测试点分路径解析
func TestLookupPath(t *testing.T) {
	variables := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"name": "laptop"},
			map[string]interface{}{"name": "monitor"},
		},
		"amount": float64(100),
	}

	assert.Equal(t, "monitor", workflow.LookupPath(variables, "items.1.name"))
	assert.Equal(t, float64(100), workflow.LookupPath(variables, "amount"))
	assert.Nil(t, workflow.LookupPath(variables, "items.5.name"))
	assert.Nil(t, workflow.LookupPath(variables, "amount.nested"))
	assert.Nil(t, workflow.LookupPath(variables, ""))
}
