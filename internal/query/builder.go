package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Errors returned by the query layer.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("column not allowed")
	ErrBadOperator   = errors.New("unsupported operator")
	ErrEmptyUpdate   = errors.New("no updatable fields in request")
)

// Filtro is one key/operator/value triple of the filter descriptor.
type Filtro struct {
	Key      string      `json:"key" validate:"required"`
	Operator string      `json:"operator" validate:"omitempty,oneof=eq neq gt gte lt lte like in"`
	Value    interface{} `json:"value"`
}

// Orden is one sort directive.
type Orden struct {
	Key       string `json:"key" validate:"required"`
	Direction string `json:"direction" validate:"omitempty,oneof=asc desc"`
}

// Request is the generic filtered-query descriptor: a logical table, a page,
// and filter/select/order triples. It is validated before anything touches
// the builder.
type Request struct {
	Tabla     string   `json:"tabla" validate:"required"`
	Pagina    int      `json:"pagina" validate:"omitempty,min=1"`
	PageSize  int      `json:"pageSize" validate:"omitempty,min=1,max=200"`
	Seleccion []string `json:"seleccion" validate:"omitempty,dive,required"`
	Filtros   []Filtro `json:"filtros" validate:"omitempty,dive"`
	Orden     []Orden  `json:"orden" validate:"omitempty,dive"`
}

// Result is the paginated envelope every dashboard module consumes.
type Result struct {
	Data         []map[string]interface{} `json:"data"`
	TotalRecords int64                    `json:"totalRecords"`
	TotalPages   int                      `json:"totalPages"`
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildSelect translates a validated Request into the page query and the
// matching count query.
func buildSelect(req Request) (page sq.SelectBuilder, count sq.SelectBuilder, err error) {
	spec, err := specFor(req.Tabla)
	if err != nil {
		return page, count, err
	}

	cols, aliases, err := selectColumns(spec, req.Seleccion)
	if err != nil {
		return page, count, err
	}

	exprs := make([]string, len(cols))
	for i, col := range cols {
		exprs[i] = fmt.Sprintf("%s AS %q", col, aliases[i])
	}

	page = psql.Select(exprs...).From(spec.From)
	count = psql.Select("COUNT(*)").From(spec.From)

	for _, f := range req.Filtros {
		cond, err := filterCondition(spec, f)
		if err != nil {
			return page, count, err
		}
		page = page.Where(cond)
		count = count.Where(cond)
	}

	ordered := false
	for _, o := range req.Orden {
		col, ok := spec.Columns[o.Key]
		if !ok {
			return page, count, fmt.Errorf("%w: %s", ErrUnknownColumn, o.Key)
		}
		dir := "ASC"
		if strings.EqualFold(o.Direction, "desc") {
			dir = "DESC"
		}
		page = page.OrderBy(fmt.Sprintf("%s %s", col, dir))
		ordered = true
	}
	if !ordered {
		page = page.OrderBy(spec.DefaultOrder)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	pagina := req.Pagina
	if pagina <= 0 {
		pagina = 1
	}
	page = page.Limit(uint64(pageSize)).Offset(uint64((pagina - 1) * pageSize))

	return page, count, nil
}

// selectColumns resolves the requested projection, or the full allowlist when
// no projection was requested. Order is deterministic.
func selectColumns(spec tableSpec, seleccion []string) (cols []string, aliases []string, err error) {
	if len(seleccion) == 0 {
		aliases = make([]string, 0, len(spec.Columns))
		for alias := range spec.Columns {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
	} else {
		aliases = seleccion
	}

	cols = make([]string, len(aliases))
	for i, alias := range aliases {
		col, ok := spec.Columns[alias]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, alias)
		}
		cols[i] = col
	}
	return cols, aliases, nil
}

// filterCondition maps one filter triple onto a squirrel predicate. A comma
// separated string with the "in" operator (or no operator) expands into a
// set membership test, matching how the dashboard sends multi-selects.
func filterCondition(spec tableSpec, f Filtro) (sq.Sqlizer, error) {
	col, ok := spec.Columns[f.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, f.Key)
	}

	op := strings.ToLower(f.Operator)
	if op == "" {
		op = "eq"
	}

	if s, isStr := f.Value.(string); isStr && strings.Contains(s, ",") && (op == "eq" || op == "in") {
		return sq.Eq{col: strings.Split(s, ",")}, nil
	}

	switch op {
	case "eq":
		return sq.Eq{col: f.Value}, nil
	case "neq":
		return sq.NotEq{col: f.Value}, nil
	case "gt":
		return sq.Gt{col: f.Value}, nil
	case "gte":
		return sq.GtOrEq{col: f.Value}, nil
	case "lt":
		return sq.Lt{col: f.Value}, nil
	case "lte":
		return sq.LtOrEq{col: f.Value}, nil
	case "like":
		return sq.ILike{col: fmt.Sprintf("%%%v%%", f.Value)}, nil
	case "in":
		return sq.Eq{col: f.Value}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBadOperator, f.Operator)
}

// UpdateRequest is the generic single-row partial update: a table, a row id
// and a field map. Only allowlisted columns survive into the statement.
type UpdateRequest struct {
	Tabla  string                 `json:"tabla" validate:"required"`
	ID     int64                  `json:"id" validate:"required,gt=0"`
	Campos map[string]interface{} `json:"campos" validate:"required,min=1"`
}

func buildUpdate(req UpdateRequest) (sq.UpdateBuilder, error) {
	spec, err := specFor(req.Tabla)
	if err != nil {
		return sq.UpdateBuilder{}, err
	}

	table := spec.From
	if i := strings.IndexAny(table, " "); i > 0 {
		table = table[:i]
	}

	b := psql.Update(table)
	applied := 0

	keys := make([]string, 0, len(req.Campos))
	for k := range req.Campos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, ok := spec.Updatable[k]
		if !ok {
			return sq.UpdateBuilder{}, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		b = b.Set(col, req.Campos[k])
		applied++
	}
	if applied == 0 {
		return sq.UpdateBuilder{}, ErrEmptyUpdate
	}

	b = b.Set("updated_at", sq.Expr("now()")).Where(sq.Eq{"id": req.ID})
	return b, nil
}
