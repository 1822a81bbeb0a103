package query

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildSelectPedidosJoinsClientes(t *testing.T) {
	page, _, err := buildSelect(Request{
		Tabla:     "pedidos",
		Pagina:    2,
		PageSize:  10,
		Seleccion: []string{"id", "status", "clienteNombre"},
		Filtros:   []Filtro{{Key: "status", Value: "NUEVO"}},
		Orden:     []Orden{{Key: "createdAt", Direction: "desc"}},
	})
	if err != nil {
		t.Fatalf("buildSelect: %v", err)
	}

	sqlStr, args, err := page.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	for _, want := range []string{
		"JOIN clientes c ON c.id = p.cliente_id",
		`p.id AS "id"`,
		`p.status AS "status"`,
		`c.nombre AS "clienteNombre"`,
		"p.status = $1",
		"ORDER BY p.created_at DESC",
		"LIMIT 10",
		"OFFSET 10",
	} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
	if len(args) != 1 || args[0] != "NUEVO" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSelectCountSharesFilters(t *testing.T) {
	_, count, err := buildSelect(Request{
		Tabla:   "articulos",
		Filtros: []Filtro{{Key: "categoria", Value: "LACTEOS"}},
	})
	if err != nil {
		t.Fatalf("buildSelect: %v", err)
	}

	sqlStr, args, err := count.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(sqlStr, "COUNT(*)") || !strings.Contains(sqlStr, "categoria = $1") {
		t.Errorf("unexpected count sql: %s", sqlStr)
	}
	if strings.Contains(sqlStr, "LIMIT") {
		t.Error("count query must not be paginated")
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSelectCommaListBecomesInClause(t *testing.T) {
	page, _, err := buildSelect(Request{
		Tabla:   "pedidos",
		Filtros: []Filtro{{Key: "status", Value: "NUEVO,SURTIENDO"}},
	})
	if err != nil {
		t.Fatalf("buildSelect: %v", err)
	}

	sqlStr, args, err := page.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(sqlStr, "p.status IN ($1,$2)") {
		t.Errorf("expected IN clause, got: %s", sqlStr)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSelectOperators(t *testing.T) {
	cases := []struct {
		op   string
		want string
	}{
		{"neq", "p.status <> $1"},
		{"gt", "p.status > $1"},
		{"gte", "p.status >= $1"},
		{"lt", "p.status < $1"},
		{"lte", "p.status <= $1"},
		{"like", "p.status ILIKE $1"},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			page, _, err := buildSelect(Request{
				Tabla:   "pedidos",
				Filtros: []Filtro{{Key: "status", Operator: tc.op, Value: "X"}},
			})
			if err != nil {
				t.Fatalf("buildSelect: %v", err)
			}
			sqlStr, _, _ := page.ToSql()
			if !strings.Contains(sqlStr, tc.want) {
				t.Errorf("sql missing %q:\n%s", tc.want, sqlStr)
			}
		})
	}
}

func TestBuildSelectRejectsUnknownTableAndColumn(t *testing.T) {
	if _, _, err := buildSelect(Request{Tabla: "usuarios_secretos"}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("unknown table: got %v", err)
	}

	_, _, err := buildSelect(Request{
		Tabla:   "pedidos",
		Filtros: []Filtro{{Key: "password", Value: "x"}},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown filter column: got %v", err)
	}

	_, _, err = buildSelect(Request{
		Tabla:     "pedidos",
		Seleccion: []string{"id", "secreto"},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown select column: got %v", err)
	}
}

func TestBuildUpdate(t *testing.T) {
	b, err := buildUpdate(UpdateRequest{
		Tabla: "pedidos",
		ID:    42,
		Campos: map[string]interface{}{
			"status": "LISTO",
		},
	})
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, want := range []string{"UPDATE pedidos", "status = $1", "updated_at = now()", "id = $2"} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
	if len(args) != 2 || args[0] != "LISTO" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateRejectsNonUpdatableColumn(t *testing.T) {
	_, err := buildUpdate(UpdateRequest{
		Tabla:  "pedidos",
		ID:     42,
		Campos: map[string]interface{}{"createdAt": "2020-01-01"},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("got %v, want ErrUnknownColumn", err)
	}

	_, err = buildUpdate(UpdateRequest{
		Tabla:  "empleados",
		ID:     1,
		Campos: map[string]interface{}{"password_hash": "owned"},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("password_hash must never be updatable, got %v", err)
	}
}
