package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const pedidoColumns = `p.id, p.cliente_id, p.sucursal_id, p.usuario_id,
	c.nombre, c.telefono, c.email,
	p.status, p.tipo, p.articulos, p.programado_para, p.created_at, p.updated_at`

// PgStore is the pgx implementation of Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) ListPedidos(ctx context.Context, params ListParams) ([]Row, int64, error) {
	base := psql.Select().From("pedidos p").Join("clientes c ON c.id = p.cliente_id")
	if params.Status != "" {
		base = base.Where(sq.Eq{"p.status": strings.Split(params.Status, ",")})
	}
	if params.SucursalID > 0 {
		base = base.Where(sq.Eq{"p.sucursal_id": params.SucursalID})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pedidos: %w", err)
	}

	pageSQL, pageArgs, err := base.Columns(pedidoColumns).
		OrderBy("p.created_at DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64((params.Pagina - 1) * params.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query pedidos: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		if err := scanRow(rows, &r); err != nil {
			return nil, 0, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pedidos: %w", err)
	}
	return result, total, nil
}

func (s *PgStore) GetPedido(ctx context.Context, id int64) (Row, error) {
	sqlStr := fmt.Sprintf(`SELECT %s FROM pedidos p JOIN clientes c ON c.id = p.cliente_id WHERE p.id = $1`, pedidoColumns)
	var r Row
	if err := scanRow(s.pool.QueryRow(ctx, sqlStr, id), &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, ErrNotFound
		}
		return Row{}, fmt.Errorf("get pedido %d: %w", id, err)
	}
	return r, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id int64, status string) (Row, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pedidos SET status = $1, updated_at = now() WHERE id = $2`,
		status, id)
	if err != nil {
		return Row{}, fmt.Errorf("update status %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return Row{}, ErrNotFound
	}
	return s.GetPedido(ctx, id)
}

func (s *PgStore) ReplaceItems(ctx context.Context, id int64, blob string, expectedVersion time.Time) (Row, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pedidos SET articulos = $1, updated_at = now() WHERE id = $2 AND updated_at = $3`,
		blob, id, expectedVersion)
	if err != nil {
		return Row{}, fmt.Errorf("replace items %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone rewrote it first.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pedidos WHERE id = $1)`, id).Scan(&exists); err != nil {
			return Row{}, fmt.Errorf("check pedido %d: %w", id, err)
		}
		if exists {
			return Row{}, ErrVersionConflict
		}
		return Row{}, ErrNotFound
	}
	return s.GetPedido(ctx, id)
}

// scanRow reads one joined pedido row; works for both pgx.Row and pgx.Rows.
func scanRow(row pgx.Row, r *Row) error {
	return row.Scan(
		&r.ID, &r.ClienteID, &r.SucursalID, &r.UsuarioID,
		&r.ClienteNombre, &r.ClienteTelefono, &r.ClienteEmail,
		&r.Status, &r.Tipo, &r.ArticulosBlob, &r.ProgramadoPara, &r.CreatedAt, &r.UpdatedAt,
	)
}
