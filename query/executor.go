package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

// Runner is the subset of db.Adapter/db.Tx the Query Executor needs. Queries
// read committed state only (§4.9), so production callers bind an Adapter,
// not a Tx.
type Runner interface {
	ExecuteQuery(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error)
}

// Executor binds a planned operation to a connection pool and shapes rows
// into the JSON response body (§4.9).
type Executor struct {
	runner  Runner
	dialect ddl.Dialect
	model   *schema.Model
}

// NewExecutor builds an Executor bound to one indexer's pool and Schema Model.
func NewExecutor(runner Runner, dialect ddl.Dialect, model *schema.Model) *Executor {
	return &Executor{runner: runner, dialect: dialect, model: model}
}

// Execute runs every top-level selection in plan and returns the combined
// `data` object.
func (ex *Executor) Execute(ctx context.Context, plan *OperationPlan) (map[string]any, error) {
	data := map[string]any{}
	for _, sel := range plan.Selections {
		var (
			value any
			err   error
		)
		if sel.IsList {
			value, err = ex.executeConnection(ctx, sel.Entity, nil, nil, sel.Filter, sel.Order, sel.Pagination, sel.Children)
		} else {
			value, err = ex.executeObject(ctx, sel)
		}
		if err != nil {
			return nil, err
		}
		data[sel.ResponseKey] = value
	}
	return data, nil
}

func (ex *Executor) executeObject(ctx context.Context, sel SelectionPlan) (any, error) {
	g := &aliasGen{}
	alias := g.next()
	compiled := compileChildren(ex.dialect, ex.model, alias, "", append([]FieldSelection{{
		ResponseKey: "__id", Field: schema.Field{Name: "id", Type: schema.ScalarUID}, IsScalar: true,
	}}, sel.Children...), g)

	args := []any{sel.RootID}
	query := fmt.Sprintf(
		"SELECT %s FROM %s AS %s %s WHERE %s.%s = %s",
		selectList(ex.dialect, compiled.columns, compiled.virtuals),
		ddl.QualifiedTable(ex.dialect, ex.model.Namespace, sel.Entity.TableName()), ddl.Quote(ex.dialect, alias),
		strings.Join(compiled.joins, " "),
		ddl.Quote(ex.dialect, alias), ddl.Quote(ex.dialect, "id"), placeholderAt(ex.dialect, 1),
	)

	rows, err := ex.runner.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanRows(rows, compiled)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	obj := results[0]
	if err := ex.attachConnections(ctx, compiled.connections, []any{sel.RootID}, map[any]map[string]any{sel.RootID: obj}); err != nil {
		return nil, err
	}
	delete(obj, "__id")
	return obj, nil
}

func (ex *Executor) executeConnection(ctx context.Context, e *schema.Entity, viaJoin *schema.JoinTable, parentID any, filter *FilterExpr, order []SortKey, pag Pagination, children []FieldSelection) (map[string]any, error) {
	g := &aliasGen{}
	alias := g.next()
	compiled := compileChildren(ex.dialect, ex.model, alias, "", append([]FieldSelection{{
		ResponseKey: "__id", Field: schema.Field{Name: "id", Type: schema.ScalarUID}, IsScalar: true,
	}}, children...), g)

	limit := 0
	if pag.First != nil {
		limit = *pag.First
	} else if pag.Last != nil {
		limit = *pag.Last
	}

	var args []any
	where := buildFilterSQL(ex.dialect, alias, filter, &args)
	cursorWhere := ""
	if pag.After != nil {
		cursorWhere = ex.cursorPredicate(alias, order, *pag.After, true, &args)
	} else if pag.Before != nil {
		cursorWhere = ex.cursorPredicate(alias, order, *pag.Before, false, &args)
	}
	whereParts := []string{}
	if where != "" {
		whereParts = append(whereParts, where)
	}
	if cursorWhere != "" {
		whereParts = append(whereParts, cursorWhere)
	}
	if viaJoin != nil {
		args = append(args, parentID)
		whereParts = append(whereParts, fmt.Sprintf(
			"%s.%s IN (SELECT %s FROM %s WHERE %s = %s)",
			ddl.Quote(ex.dialect, alias), ddl.Quote(ex.dialect, "id"),
			ddl.Quote(ex.dialect, viaJoin.ChildCol), ddl.QualifiedTable(ex.dialect, ex.model.Namespace, viaJoin.Name),
			ddl.Quote(ex.dialect, viaJoin.ParentCol), placeholderAt(ex.dialect, len(args)),
		))
	}
	whereSQL := ""
	if len(whereParts) > 0 {
		whereSQL = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s AS %s %s %s ORDER BY %s LIMIT %d",
		selectList(ex.dialect, compiled.columns, compiled.virtuals),
		ddl.QualifiedTable(ex.dialect, ex.model.Namespace, e.TableName()), ddl.Quote(ex.dialect, alias),
		strings.Join(compiled.joins, " "), whereSQL,
		orderBySQL(ex.dialect, alias, order), limit+1,
	)

	rows, err := ex.runner.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	results, err := scanRows(rows, compiled)
	rows.Close()
	if err != nil {
		return nil, err
	}

	hasMore := len(results) > limit
	if hasMore {
		results = results[:limit]
	}

	total, err := ex.count(ctx, e, alias, filter, viaJoin, parentID)
	if err != nil {
		return nil, err
	}

	ids := make([]any, 0, len(results))
	byID := map[any]map[string]any{}
	for _, r := range results {
		id := r["__id"]
		ids = append(ids, id)
		byID[id] = r
	}
	if err := ex.attachConnections(ctx, compiled.connections, ids, byID); err != nil {
		return nil, err
	}

	nodes := make([]any, 0, len(results))
	edges := make([]any, 0, len(results))
	var endCursor, startCursor string
	for i, r := range results {
		delete(r, "__id")
		nodes = append(nodes, r)
		cursor := EncodeCursor(sortKeyBytes(sortValues(order, r)))
		edges = append(edges, map[string]any{"node": r, "cursor": cursor})
		if i == 0 {
			startCursor = cursor
		}
		if i == len(results)-1 {
			endCursor = cursor
		}
	}

	return map[string]any{
		"nodes": nodes,
		"edges": edges,
		"pageInfo": map[string]any{
			"hasNextPage":     hasMore && pag.Forward(),
			"hasPreviousPage": hasMore && !pag.Forward(),
			"startCursor":     startCursor,
			"endCursor":       endCursor,
		},
		"totalCount": total,
	}, nil
}

// attachConnections resolves each list-reference child with one additional
// query per parent row, keyed back onto that parent's already-built object
// (§4.8 step 4 nested connections). This trades the spec's literal
// per-dialect LATERAL/correlated-subquery SQL text for a uniform
// application-level fetch — see DESIGN.md for the rationale and its
// known N+1 cost at high fan-out.
func (ex *Executor) attachConnections(ctx context.Context, conns []compiledConnection, parentIDs []any, byParentID map[any]map[string]any) error {
	for _, cc := range conns {
		for _, pid := range parentIDs {
			parent, ok := byParentID[pid]
			if !ok {
				continue
			}
			v, err := ex.executeConnection(ctx, cc.selection.Entity, cc.viaJoin, pid, cc.selection.Filter, cc.selection.Order, cc.selection.Pagination, cc.selection.Children)
			if err != nil {
				return err
			}
			parent[cc.selection.ResponseKey] = v
		}
	}
	return nil
}

func (ex *Executor) count(ctx context.Context, e *schema.Entity, alias string, filter *FilterExpr, viaJoin *schema.JoinTable, parentID any) (int64, error) {
	var args []any
	where := buildFilterSQL(ex.dialect, alias, filter, &args)
	whereParts := []string{}
	if where != "" {
		whereParts = append(whereParts, where)
	}
	if viaJoin != nil {
		args = append(args, parentID)
		whereParts = append(whereParts, fmt.Sprintf(
			"%s.%s IN (SELECT %s FROM %s WHERE %s = %s)",
			ddl.Quote(ex.dialect, alias), ddl.Quote(ex.dialect, "id"),
			ddl.Quote(ex.dialect, viaJoin.ChildCol), ddl.QualifiedTable(ex.dialect, ex.model.Namespace, viaJoin.Name),
			ddl.Quote(ex.dialect, viaJoin.ParentCol), placeholderAt(ex.dialect, len(args)),
		))
	}
	whereSQL := ""
	if len(whereParts) > 0 {
		whereSQL = "WHERE " + strings.Join(whereParts, " AND ")
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s AS %s %s", ddl.QualifiedTable(ex.dialect, ex.model.Namespace, e.TableName()), ddl.Quote(ex.dialect, alias), whereSQL)
	rows, err := ex.runner.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// cursorPredicate builds the WHERE fragment that resumes a page after (or
// before) a decoded cursor, comparing against the first sort key (§4.8 step 5).
func (ex *Executor) cursorPredicate(alias string, order []SortKey, cursor string, forward bool, args *[]any) string {
	if len(order) == 0 {
		return ""
	}
	raw, err := DecodeCursor(cursor)
	if err != nil {
		return ""
	}
	key := string(raw)
	if i := strings.IndexByte(key, 0); i >= 0 {
		key = key[:i]
	}
	*args = append(*args, key)
	op := ">"
	if order[0].Desc {
		op = "<"
	}
	if !forward {
		if op == ">" {
			op = "<"
		} else {
			op = ">"
		}
	}
	return fmt.Sprintf("%s.%s %s %s", ddl.Quote(ex.dialect, alias), ddl.Quote(ex.dialect, schema.ToSnakeCase(order[0].Field)), op, placeholderAt(ex.dialect, len(*args)))
}

func sortValues(order []SortKey, row map[string]any) []any {
	out := make([]any, len(order))
	for i, k := range order {
		out[i] = row[k.Field]
	}
	return out
}

func selectList(d ddl.Dialect, cols []outputColumn, virtuals []virtualColumn) string {
	parts := make([]string, 0, len(cols)+len(virtuals))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s AS %s", c.expr, ddl.Quote(d, c.path)))
	}
	for _, v := range virtuals {
		parts = append(parts, fmt.Sprintf("%s AS %s", v.expr, ddl.Quote(d, v.path)))
	}
	if len(parts) == 0 {
		return "1"
	}
	return strings.Join(parts, ", ")
}

// scanRows executes the dynamic-column scan and reassembles each row into a
// nested map by splitting output-column paths on ".".
func scanRows(rows *sql.Rows, compiled compiledSelect) ([]map[string]any, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		dest := make([]any, len(colNames))
		raw := make([]any, len(colNames))
		for i := range dest {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		root := map[string]any{}
		for i, name := range colNames {
			assignPath(root, strings.Split(name, "."), raw[i])
		}

		for _, v := range compiled.virtuals {
			decodeVirtual(root, v)
		}
		out = append(out, root)
	}
	return out, rows.Err()
}

func assignPath(root map[string]any, path []string, value any) {
	if len(path) == 1 {
		root[path[0]] = value
		return
	}
	head, rest := path[0], path[1:]
	child, ok := root[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		root[head] = child
	}
	assignPath(child, rest, value)
}

func decodeVirtual(root map[string]any, v virtualColumn) {
	segs := strings.Split(v.path, ".")
	raw, ok := navigate(root, segs)
	if !ok || raw == nil {
		return
	}
	var blob []byte
	switch t := raw.(type) {
	case []byte:
		blob = t
	case string:
		blob = []byte(t)
	default:
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return
	}
	out := map[string]any{}
	for _, f := range v.fields {
		if f.IsScalar {
			out[f.ResponseKey] = decoded[f.Field.Name]
		}
	}
	setPath(root, segs, out)
}

func navigate(root map[string]any, path []string) (any, bool) {
	cur := any(root)
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(root map[string]any, path []string, value any) {
	if len(path) == 1 {
		root[path[0]] = value
		return
	}
	child, _ := root[path[0]].(map[string]any)
	if child == nil {
		child = map[string]any{}
		root[path[0]] = child
	}
	setPath(child, path[1:], value)
}
