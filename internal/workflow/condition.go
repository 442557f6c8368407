package workflow

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConditionEvaluator 条件求值器
// 对实例变量求值边上的条件表达式
// 字段不存在或操作符未知时求值为 false 而不是报错,保证图遍历总能完成;
// 每次失败求值都会输出日志供排查
type ConditionEvaluator struct {
	logger *logrus.Logger
}

// NewConditionEvaluator 创建条件求值器
func NewConditionEvaluator(logger *logrus.Logger) *ConditionEvaluator {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConditionEvaluator{logger: logger}
}

// Evaluate 对变量集求值单个条件
func (e *ConditionEvaluator) Evaluate(cond *Condition, variables map[string]interface{}) bool {
	if cond == nil {
		return true
	}

	actual := LookupPath(variables, cond.Field)
	if actual == nil {
		e.logger.WithFields(logrus.Fields{
			"field":    cond.Field,
			"operator": cond.Operator,
		}).Warn("condition field not found in variables, evaluating to false")
		return false
	}

	switch cond.Operator {
	case "eq":
		return looseEqual(actual, cond.Value)
	case "ne":
		return !looseEqual(actual, cond.Value)
	case "gt", "ge", "lt", "le":
		left, lok := toFloat(actual)
		right, rok := toFloat(cond.Value)
		if !lok || !rok {
			e.logger.WithFields(logrus.Fields{
				"field":    cond.Field,
				"operator": cond.Operator,
			}).Warn("condition operands are not numeric, evaluating to false")
			return false
		}
		switch cond.Operator {
		case "gt":
			return left > right
		case "ge":
			return left >= right
		case "lt":
			return left < right
		default:
			return left <= right
		}
	case "in":
		list, ok := cond.Value.([]interface{})
		if !ok {
			e.logger.WithField("field", cond.Field).Warn("condition value for 'in' is not a list, evaluating to false")
			return false
		}
		for _, item := range list {
			if looseEqual(actual, item) {
				return true
			}
		}
		return false
	case "contains":
		return e.evaluateContains(cond, actual)
	default:
		e.logger.WithFields(logrus.Fields{
			"field":    cond.Field,
			"operator": cond.Operator,
		}).Warn("unknown condition operator, evaluating to false")
		return false
	}
}

// EvaluateAll 条件列表按逻辑与求值
// 不支持原生 OR 分组,或关系通过多条边表达
func (e *ConditionEvaluator) EvaluateAll(conds []Condition, variables map[string]interface{}) bool {
	for i := range conds {
		if !e.Evaluate(&conds[i], variables) {
			return false
		}
	}
	return true
}

// evaluateContains 求值 contains: 字符串包含子串,列表包含元素
func (e *ConditionEvaluator) evaluateContains(cond *Condition, actual interface{}) bool {
	switch v := actual.(type) {
	case string:
		needle, ok := cond.Value.(string)
		if !ok {
			return false
		}
		return strings.Contains(v, needle)
	case []interface{}:
		for _, item := range v {
			if looseEqual(item, cond.Value) {
				return true
			}
		}
		return false
	default:
		e.logger.WithField("field", cond.Field).Warn("condition field for 'contains' is not a string or list, evaluating to false")
		return false
	}
}

// LookupPath 按点分路径解析嵌套变量
// 支持嵌套 map 与列表下标,路径不存在时返回 nil
func LookupPath(variables map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	var current interface{} = variables
	for _, segment := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			value, exists := v[segment]
			if !exists {
				return nil
			}
			current = value
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(v) {
				return nil
			}
			current = v[index]
		default:
			return nil
		}
	}
	return current
}

// looseEqual 宽松相等比较
// 两侧都能转为数值时按数值比较,否则按原生类型比较
func looseEqual(left, right interface{}) bool {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		return lf == rf
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return ls == rs
		}
	}
	return reflect.DeepEqual(left, right)
}

// toFloat 数值类型强转
// 数值字符串(如 "10000")也会尝试解析,条件定义常以字符串保存字面量
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
