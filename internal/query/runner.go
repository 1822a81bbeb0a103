package query

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/cache"
)

const countCacheTTL = 30 * time.Second

// Runner validates descriptors, builds SQL and executes it. Row counts are
// cached in Redis per table version; every generic update bumps the table
// version, invalidating all cached counts for it at once.
type Runner struct {
	pool     *pgxpool.Pool
	cache    cache.Cache
	log      *zap.Logger
	validate *validator.Validate
}

func NewRunner(pool *pgxpool.Pool, c cache.Cache, log *zap.Logger) *Runner {
	if c == nil {
		c = cache.Noop{}
	}
	return &Runner{
		pool:     pool,
		cache:    c,
		log:      log,
		validate: validator.New(),
	}
}

// Run executes a filtered, paginated query and returns the standard envelope.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid query descriptor: %w", err)
	}

	pageQ, countQ, err := buildSelect(req)
	if err != nil {
		return nil, err
	}

	total, err := r.countRecords(ctx, req.Tabla, countQ)
	if err != nil {
		return nil, err
	}

	sqlStr, args, err := pageQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Tabla, err)
	}
	defer rows.Close()

	data := make([]map[string]interface{}, 0)
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &Result{Data: data, TotalRecords: total, TotalPages: totalPages}, nil
}

// Update performs the generic single-row partial update and returns the
// number of rows touched.
func (r *Runner) Update(ctx context.Context, req UpdateRequest) (int64, error) {
	if err := r.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("invalid update descriptor: %w", err)
	}

	b, err := buildUpdate(req)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", req.Tabla, err)
	}

	r.bumpVersion(ctx, req.Tabla)
	return tag.RowsAffected(), nil
}

// InvalidateTable bumps the table's cache version. Called by handlers that
// write outside the generic update path.
func (r *Runner) InvalidateTable(ctx context.Context, tabla string) {
	r.bumpVersion(ctx, tabla)
}

func (r *Runner) bumpVersion(ctx context.Context, tabla string) {
	if _, err := r.cache.Incr(ctx, "q:ver:"+tabla); err != nil {
		r.log.Warn("bump cache version", zap.String("tabla", tabla), zap.Error(err))
	}
}

func (r *Runner) countRecords(ctx context.Context, tabla string, countQ interface {
	ToSql() (string, []interface{}, error)
}) (int64, error) {
	sqlStr, args, err := countQ.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	ver, _ := r.cache.Get(ctx, "q:ver:"+tabla)
	key := fmt.Sprintf("q:count:%s:%s:%x", tabla, ver, sha1.Sum([]byte(fmt.Sprintf("%s%v", sqlStr, args))))

	if cached, err := r.cache.Get(ctx, key); err == nil {
		if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return n, nil
		}
	} else if err != cache.ErrMiss {
		r.log.Warn("count cache read", zap.Error(err))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", tabla, err)
	}

	if err := r.cache.Set(ctx, key, total, countCacheTTL); err != nil {
		r.log.Warn("count cache write", zap.Error(err))
	}
	return total, nil
}
