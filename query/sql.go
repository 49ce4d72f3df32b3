package query

import (
	"fmt"
	"strings"

	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

// aliasGen hands out deterministic, unique SQL table aliases for one
// compiled query.
type aliasGen struct{ n int }

func (g *aliasGen) next() string {
	g.n++
	return fmt.Sprintf("t%d", g.n)
}

// outputColumn is one leaf value the compiled SELECT projects. path is the
// dot-joined response-key chain from the selection root (just the response
// key for a root-level field), used directly as the quoted SQL column alias so row
// shaping can reconstruct the nested JSON tree by splitting on ".".
type outputColumn struct {
	path   string
	expr   string // e.g. `"t1"."name"`
	scalar schema.ScalarType
}

// virtualColumn is a selected @virtual singular reference: the whole
// sub-object lives as one JSON column on the parent row (§4.2 DDL Builder
// embeds virtual references inline), so it is selected once and decoded in
// Go rather than joined.
type virtualColumn struct {
	path     string
	expr     string
	fields   []FieldSelection
}

// compiledSelect is one entity's flattened column/join plan, built
// recursively for Join children.
type compiledSelect struct {
	columns     []outputColumn
	virtuals    []virtualColumn
	joins       []string // "LEFT JOIN ... AS alias ON ..."
	connections []compiledConnection
}

// compiledConnection is a list-reference child that is fetched with a
// separate query per parent row rather than inlined into the flat join
// (§4.8 step 4 nested connections).
type compiledConnection struct {
	path      string
	selection FieldSelection
	viaJoin   *schema.JoinTable
}

// compileChildren walks a resolved selection list, emitting output columns
// for scalars, recursive joins for singular references, and
// compiledConnection entries for list-references (§4.8 step 2, step 4).
func compileChildren(d ddl.Dialect, m *schema.Model, tableAlias string, prefix string, fields []FieldSelection, g *aliasGen) compiledSelect {
	out := compiledSelect{}

	for _, fs := range fields {
		path := fs.ResponseKey
		if prefix != "" {
			path = prefix + "." + fs.ResponseKey
		}

		switch {
		case fs.IsScalar:
			out.columns = append(out.columns, outputColumn{
				path:   path,
				expr:   fmt.Sprintf("%s.%s", ddl.Quote(d, tableAlias), ddl.Quote(d, fs.Field.ColumnName())),
				scalar: fs.Field.Type,
			})

		case fs.IsVirtual:
			out.virtuals = append(out.virtuals, virtualColumn{
				path:   path,
				expr:   fmt.Sprintf("%s.%s", ddl.Quote(d, tableAlias), ddl.Quote(d, fs.Field.ColumnName())),
				fields: fs.Children,
			})

		case fs.IsJoin:
			childAlias := g.next()
			localCol, refCol := joinColumns(fs.Field, fs.Entity)
			joinKind := "LEFT JOIN"
			if fs.Field.Required {
				joinKind = "INNER JOIN"
			}
			out.joins = append(out.joins, fmt.Sprintf(
				"%s %s AS %s ON %s.%s = %s.%s",
				joinKind, ddl.QualifiedTable(d, m.Namespace, fs.Entity.TableName()), ddl.Quote(d, childAlias),
				ddl.Quote(d, tableAlias), ddl.Quote(d, localCol),
				ddl.Quote(d, childAlias), ddl.Quote(d, refCol),
			))
			out.columns = append(out.columns, outputColumn{
				path:   path + ".__id",
				expr:   fmt.Sprintf("%s.%s", ddl.Quote(d, childAlias), ddl.Quote(d, "id")),
				scalar: schema.ScalarUID,
			})
			nested := compileChildren(d, m, childAlias, path, fs.Children, g)
			out.columns = append(out.columns, nested.columns...)
			out.virtuals = append(out.virtuals, nested.virtuals...)
			out.joins = append(out.joins, nested.joins...)
			out.connections = append(out.connections, nested.connections...)

		case fs.IsConnection:
			// Every list-reference field is mediated by a many-to-many join
			// table (schema.Build never emits a bare reverse-FK connection),
			// so the parent constraint is always expressed through it.
			cc := compiledConnection{path: path, selection: fs}
			for _, jt := range m.JoinTables {
				if jt.FieldName == fs.Field.Name {
					jtCopy := jt
					cc.viaJoin = &jtCopy
					break
				}
			}
			out.connections = append(out.connections, cc)
		}
	}
	return out
}

// joinColumns mirrors schema.Build's own FK-derivation logic (model.go) to
// recompute the local/referenced column pair for a reference field without
// re-deriving the whole ForeignKey list.
func joinColumns(f schema.Field, ref *schema.Entity) (localCol, refCol string) {
	localCol = f.ColumnName()
	if f.JoinOn != "" {
		if target, ok := ref.Field(f.JoinOn); ok {
			return localCol, target.ColumnName()
		}
	}
	return localCol, "id"
}

// buildFilterSQL renders a FilterExpr into a WHERE fragment and its
// positional args, placeholder-numbered after the args already in *args.
func buildFilterSQL(d ddl.Dialect, tableAlias string, expr *FilterExpr, args *[]any) string {
	if expr == nil {
		return ""
	}
	switch expr.Op {
	case OpAnd, OpOr:
		parts := make([]string, 0, len(expr.Children))
		for i := range expr.Children {
			parts = append(parts, "("+buildFilterSQL(d, tableAlias, &expr.Children[i], args)+")")
		}
		sep := " AND "
		if expr.Op == OpOr {
			sep = " OR "
		}
		return strings.Join(parts, sep)
	case OpNot:
		return "NOT (" + buildFilterSQL(d, tableAlias, &expr.Children[0], args) + ")"
	default:
		col := fmt.Sprintf("%s.%s", ddl.Quote(d, tableAlias), ddl.Quote(d, expr.Field))
		switch expr.Op {
		case OpEq:
			*args = append(*args, expr.Value)
			return fmt.Sprintf("%s = %s", col, placeholderAt(d, len(*args)))
		case OpGt, OpGte, OpLt, OpLte:
			*args = append(*args, expr.Value)
			return fmt.Sprintf("%s %s %s", col, sqlComparator(expr.Op), placeholderAt(d, len(*args)))
		case OpIn:
			phs := make([]string, len(expr.Values))
			for i, v := range expr.Values {
				*args = append(*args, v)
				phs[i] = placeholderAt(d, len(*args))
			}
			return fmt.Sprintf("%s IN (%s)", col, strings.Join(phs, ", "))
		}
	}
	return "1=1"
}

func sqlComparator(op FilterOp) string {
	switch op {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	default:
		return "<="
	}
}

func placeholderAt(d ddl.Dialect, n int) string {
	if d == ddl.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func orderBySQL(d ddl.Dialect, tableAlias string, order []SortKey) string {
	parts := make([]string, len(order))
	for i, k := range order {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s.%s %s", ddl.Quote(d, tableAlias), ddl.Quote(d, schema.ToSnakeCase(k.Field)), dir)
	}
	return strings.Join(parts, ", ")
}
