package query

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/indexerd/schema"
)

// Planner resolves parsed GraphQL documents against one Schema Model (§4.8).
type Planner struct {
	model *schema.Model

	rootByList   map[string]*schema.Entity // "blocks" -> Block
	rootByObject map[string]*schema.Entity // "block" -> Block
}

// NewPlanner builds the root-field name index once per Schema Model, reused
// across every query planned for that indexer (§9 schema-as-data).
func NewPlanner(model *schema.Model) *Planner {
	p := &Planner{model: model, rootByList: map[string]*schema.Entity{}, rootByObject: map[string]*schema.Entity{}}
	for _, e := range model.Entities {
		if e.Virtual {
			continue
		}
		p.rootByList[schema.RootListFieldName(e.Name)] = e
		p.rootByObject[schema.RootObjectFieldName(e.Name)] = e
	}
	return p
}

// Plan implements the Query Planner's stages 1-4 (§4.8): parse is assumed
// already done by the caller (doc is the gqlparser-parsed document);
// fragments are resolved and cycle-checked here, selections resolved
// against the Schema Model, arguments validated, and joins/connections
// planned.
func (p *Planner) Plan(doc *ast.QueryDocument, operationName string, rawVariables map[string]any) (*OperationPlan, error) {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}

	fields, err := flattenSelectionSet(op.SelectionSet, doc.Fragments, map[string]bool{})
	if err != nil {
		return nil, err
	}

	for _, f := range fields {
		if f.Name == "__schema" || f.Name == "__type" {
			return &OperationPlan{OperationName: operationName, Introspection: true}, nil
		}
	}

	plan := &OperationPlan{OperationName: operationName}
	for _, f := range fields {
		sel, err := p.planRoot(f, doc.Fragments, rawVariables)
		if err != nil {
			return nil, err
		}
		plan.Selections = append(plan.Selections, *sel)
	}
	return plan, nil
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if len(doc.Operations) == 0 {
		return nil, newQueryError("empty-document", "document contains no operations")
	}
	if name == "" {
		if len(doc.Operations) != 1 {
			return nil, newQueryError("ambiguous-operation", "operationName is required when a document has more than one operation")
		}
		return doc.Operations[0], nil
	}
	for _, o := range doc.Operations {
		if o.Name == name {
			return o, nil
		}
	}
	return nil, newQueryError("unknown-operation", "unknown operation \""+name+"\"")
}

// flattenSelectionSet expands fragment spreads and inline fragments into a
// flat list of *ast.Field, rejecting self-referential fragment expansion
// (§4.8 "reject queries containing cycles across reference fields": a
// fragment that (transitively) spreads itself would otherwise expand
// without bound).
func flattenSelectionSet(set ast.SelectionSet, fragments ast.FragmentDefinitionList, onPath map[string]bool) ([]*ast.Field, error) {
	var out []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			out = append(out, s)
		case *ast.InlineFragment:
			nested, err := flattenSelectionSet(s.SelectionSet, fragments, onPath)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case *ast.FragmentSpread:
			if onPath[s.Name] {
				return nil, errCycle(s.Name)
			}
			frag := fragments.ForName(s.Name)
			if frag == nil {
				return nil, newQueryError("unknown-fragment", "unknown fragment \""+s.Name+"\"")
			}
			onPath[s.Name] = true
			nested, err := flattenSelectionSet(frag.SelectionSet, fragments, onPath)
			delete(onPath, s.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
	}
	return out, nil
}

func (p *Planner) planRoot(f *ast.Field, fragments ast.FragmentDefinitionList, vars map[string]any) (*SelectionPlan, error) {
	responseKey := f.Alias
	if responseKey == "" {
		responseKey = f.Name
	}

	if e, ok := p.rootByObject[f.Name]; ok {
		idArg := argValue(f, "id")
		if idArg == nil {
			return nil, errRootMissingID(e.Name)
		}
		idVal, err := resolveValue(idArg, vars)
		if err != nil {
			return nil, err
		}
		children, err := p.planSelectionSet(f.SelectionSet, e, fragments, vars, map[string]bool{e.Name: true})
		if err != nil {
			return nil, err
		}
		return &SelectionPlan{ResponseKey: responseKey, Entity: e, IsList: false, RootID: fmt.Sprintf("%v", idVal), Children: children}, nil
	}

	if e, ok := p.rootByList[f.Name]; ok {
		if e.Virtual {
			return nil, errVirtualRoot(e.Name)
		}
		filter, order, pag, err := p.planArguments(f, e, vars)
		if err != nil {
			return nil, err
		}
		if pag.First == nil && pag.Last == nil {
			return nil, errNoDirection(responseKey)
		}
		if len(order) == 0 {
			return nil, errMissingOrder(responseKey)
		}
		children, err := p.planSelectionSet(f.SelectionSet, e, fragments, vars, map[string]bool{e.Name: true})
		if err != nil {
			return nil, err
		}
		return &SelectionPlan{ResponseKey: responseKey, Entity: e, IsList: true, Filter: filter, Order: order, Pagination: pag, Children: children}, nil
	}

	return nil, errUnknownType(f.Name)
}

// planSelectionSet resolves one entity's child selections (§4.8 step 2):
// scalar fields become projections, singular non-virtual references become
// joins, singular virtual references are read from the embedded JSON
// column, and list-references become paginated connection selections.
// onPath tracks the entity names already on this root-to-leaf path so a
// selection that revisits an ancestor entity through a reference field is
// rejected as a cycle.
func (p *Planner) planSelectionSet(set ast.SelectionSet, e *schema.Entity, fragments ast.FragmentDefinitionList, vars map[string]any, onPath map[string]bool) ([]FieldSelection, error) {
	fields, err := flattenSelectionSet(set, fragments, map[string]bool{})
	if err != nil {
		return nil, err
	}

	var out []FieldSelection
	for _, f := range fields {
		if f.Name == "__typename" {
			continue
		}
		fld, ok := e.Field(f.Name)
		if !ok {
			return nil, errUnknownField(e.Name, f.Name)
		}
		responseKey := f.Alias
		if responseKey == "" {
			responseKey = f.Name
		}

		if !fld.IsReference {
			if len(f.SelectionSet) != 0 {
				return nil, newQueryError("scalar-with-selection", "scalar field \""+f.Name+"\" cannot have a sub-selection")
			}
			out = append(out, FieldSelection{ResponseKey: responseKey, Field: fld, IsScalar: true})
			continue
		}

		ref, ok := p.model.Entity(fld.Entity)
		if !ok {
			return nil, errUnknownType(fld.Entity)
		}

		if ref.Virtual {
			children, err := p.planSelectionSet(f.SelectionSet, ref, fragments, vars, onPath)
			if err != nil {
				return nil, err
			}
			out = append(out, FieldSelection{ResponseKey: responseKey, Field: fld, IsVirtual: true, Entity: ref, Children: children})
			continue
		}

		if onPath[ref.Name] {
			return nil, errCycle(e.Name + "." + f.Name + " -> " + ref.Name)
		}
		onPath[ref.Name] = true

		if fld.ListReference {
			filter, order, pag, err := p.planArguments(f, ref, vars)
			if err != nil {
				delete(onPath, ref.Name)
				return nil, err
			}
			if pag.First == nil && pag.Last == nil {
				delete(onPath, ref.Name)
				return nil, errNoDirection(responseKey)
			}
			if len(order) == 0 {
				delete(onPath, ref.Name)
				return nil, errMissingOrder(responseKey)
			}
			children, err := p.planSelectionSet(f.SelectionSet, ref, fragments, vars, onPath)
			delete(onPath, ref.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, FieldSelection{
				ResponseKey: responseKey, Field: fld, IsConnection: true, Entity: ref,
				Filter: filter, Order: order, Pagination: pag, Children: children,
			})
			continue
		}

		children, err := p.planSelectionSet(f.SelectionSet, ref, fragments, vars, onPath)
		delete(onPath, ref.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, FieldSelection{ResponseKey: responseKey, Field: fld, IsJoin: true, Entity: ref, Children: children})
	}
	return out, nil
}

// planArguments resolves filter/order/pagination arguments for one
// connection-shaped selection (§4.8 step 3).
func (p *Planner) planArguments(f *ast.Field, e *schema.Entity, vars map[string]any) (*FilterExpr, []SortKey, Pagination, error) {
	var filter *FilterExpr
	var order []SortKey
	var pag Pagination

	for _, arg := range f.Arguments {
		switch arg.Name {
		case "filter":
			val, err := resolveValue(arg.Value, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			obj, ok := val.(map[string]any)
			if !ok {
				return nil, nil, pag, newQueryError("filter-shape", "\"filter\" must be an object")
			}
			filter, err = parseFilter(e, obj)
			if err != nil {
				return nil, nil, pag, err
			}
		case "order":
			val, err := resolveValue(arg.Value, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			obj, ok := val.(map[string]any)
			if !ok {
				return nil, nil, pag, newQueryError("order-shape", "\"order\" must be an object of field: asc|desc")
			}
			for field, dir := range obj {
				if _, ok := e.Field(field); !ok {
					return nil, nil, pag, errUnknownField(e.Name, field)
				}
				desc := fmt.Sprintf("%v", dir) == "desc"
				order = append(order, SortKey{Field: field, Desc: desc})
			}
		case "first":
			n, err := argInt(arg, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			pag.First = &n
		case "after":
			s, err := argString(arg, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			pag.After = &s
		case "last":
			n, err := argInt(arg, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			pag.Last = &n
		case "before":
			s, err := argString(arg, vars)
			if err != nil {
				return nil, nil, pag, err
			}
			pag.Before = &s
		case "id":
			// handled by the object-root caller
		default:
			return nil, nil, pag, errUnknownArgument(f.Name, arg.Name)
		}
	}

	if (pag.First != nil || pag.After != nil) && (pag.Last != nil || pag.Before != nil) {
		return nil, nil, pag, errBothDirections(f.Name)
	}
	return filter, order, pag, nil
}

func argValue(f *ast.Field, name string) *ast.Value {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

func argInt(arg *ast.Argument, vars map[string]any) (int, error) {
	val, err := resolveValue(arg.Value, vars)
	if err != nil {
		return 0, err
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, newQueryError("argument-type", "argument \""+arg.Name+"\" must be an integer")
		}
		return n, nil
	default:
		return 0, newQueryError("argument-type", "argument \""+arg.Name+"\" must be an integer")
	}
}

func argString(arg *ast.Argument, vars map[string]any) (string, error) {
	val, err := resolveValue(arg.Value, vars)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", val), nil
}
