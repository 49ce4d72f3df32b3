package query

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/indexerd/schema"
)

// FilterOp is a single filter operator (§4.8 step 3).
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpIn  FilterOp = "in"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
	OpAnd FilterOp = "and"
	OpOr  FilterOp = "or"
	OpNot FilterOp = "not"
)

var comparisonOps = map[FilterOp]bool{OpEq: true, OpIn: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true}
var orderedOnlyOps = map[FilterOp]bool{OpGt: true, OpGte: true, OpLt: true, OpLte: true}

// FilterExpr is a node in the recursive filter predicate tree. A leaf node
// has Op set to a comparison operator, Field set, and Value/Values holding
// the literal or resolved-variable operand(s). A branch node has Op set to
// and/or/not and Children populated.
type FilterExpr struct {
	Op       FilterOp
	Field    string
	FieldTy  schema.ScalarType
	Value    any
	Values   []any
	Children []FilterExpr
}

// parseFilter resolves a `filter:` argument value against entity e (§4.8
// step 3). value is the gqlparser AST value already coerced through
// variables by resolveValue.
func parseFilter(e *schema.Entity, value map[string]any) (*FilterExpr, error) {
	return parseFilterNode(e, value)
}

func parseFilterNode(e *schema.Entity, obj map[string]any) (*FilterExpr, error) {
	if len(obj) != 1 {
		return nil, newQueryError("filter-shape", "filter object must contain exactly one key (a field name or and/or/not)")
	}
	for key, raw := range obj {
		switch FilterOp(key) {
		case OpAnd, OpOr:
			list, ok := raw.([]any)
			if !ok {
				return nil, newQueryError("filter-shape", "\""+key+"\" expects a list of filter objects")
			}
			children := make([]FilterExpr, 0, len(list))
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, newQueryError("filter-shape", "\""+key+"\" list elements must be filter objects")
				}
				child, err := parseFilterNode(e, m)
				if err != nil {
					return nil, err
				}
				children = append(children, *child)
			}
			return &FilterExpr{Op: FilterOp(key), Children: children}, nil

		case OpNot:
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, newQueryError("filter-shape", "\"not\" expects a filter object")
			}
			child, err := parseFilterNode(e, m)
			if err != nil {
				return nil, err
			}
			if child.Op != "" && comparisonOps[child.Op] {
				if child.FieldTy == schema.ScalarBoolean {
					// negating a boolean equality predicate is fine
				} else if child.Op != OpEq && child.Op != OpIn {
					return nil, errNegationNotBoolean(child.Field)
				}
			}
			return &FilterExpr{Op: OpNot, Children: []FilterExpr{*child}}, nil

		default:
			// key is a field name; value is {op: operand}
			f, ok := e.Field(key)
			if !ok {
				return nil, errUnknownField(e.Name, key)
			}
			opsMap, ok := raw.(map[string]any)
			if !ok || len(opsMap) != 1 {
				return nil, newQueryError("filter-shape", "field filter for \""+key+"\" must contain exactly one operator")
			}
			for opName, operand := range opsMap {
				op := FilterOp(opName)
				if !comparisonOps[op] {
					return nil, errUnsupportedOperator(opName)
				}
				if orderedOnlyOps[op] && !f.Type.Ordered() {
					return nil, errUnsupportedOperator(fmt.Sprintf("%s on unordered field %q", opName, key))
				}
				expr := &FilterExpr{Op: op, Field: f.ColumnName(), FieldTy: f.Type}
				if op == OpIn {
					values, ok := operand.([]any)
					if !ok {
						return nil, newQueryError("filter-shape", "\"in\" expects a list operand")
					}
					expr.Values = values
				} else {
					expr.Value = operand
				}
				return expr, nil
			}
		}
	}
	return nil, newQueryError("filter-shape", "empty filter object")
}

// resolveValue converts a gqlparser AST value node into a plain Go value,
// substituting variables from the operation's variable map.
func resolveValue(v *ast.Value, vars map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if v.Kind == ast.Variable {
		val, ok := vars[v.Raw]
		if !ok {
			return nil, errUndefinedVariable(v.Raw)
		}
		return val, nil
	}
	switch v.Kind {
	case ast.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			val, err := resolveValue(c.Value, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case ast.ObjectValue:
		out := map[string]any{}
		for _, c := range v.Children {
			val, err := resolveValue(c.Value, vars)
			if err != nil {
				return nil, err
			}
			out[c.Name] = val
		}
		return out, nil
	case ast.IntValue, ast.FloatValue, ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.NullValue:
		return nil, nil
	default:
		return v.Raw, nil
	}
}
