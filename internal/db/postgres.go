package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/model"
)

const (
	createTableQuery = `
        CREATE TABLE IF NOT EXISTS evaluations (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            source VARCHAR(16) NOT NULL,
            model_kind VARCHAR(8) NOT NULL,
            lambda DOUBLE PRECISION NOT NULL,
            mu DOUBLE PRECISION NOT NULL,
            servers INTEGER NOT NULL,
            model VARCHAR(32),
            r DOUBLE PRECISION,
            rho DOUBLE PRECISION,
            p0 DOUBLE PRECISION,
            pw DOUBLE PRECISION,
            lq DOUBLE PRECISION,
            l DOUBLE PRECISION,
            wq DOUBLE PRECISION,
            w DOUBLE PRECISION,
            error TEXT,
            error_kind VARCHAR(32)
        )
    `

	insertQuery = `
        INSERT INTO evaluations (created_at, source, model_kind, lambda, mu, servers,
            model, r, rho, p0, pw, lq, l, wq, w, error, error_kind)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING id
    `

	selectColumns = `SELECT id, created_at, source, model_kind, lambda, mu, servers,
        model, r, rho, p0, pw, lq, l, wq, w, error, error_kind FROM evaluations`

	getQuery  = selectColumns + " WHERE id = $1"
	listQuery = selectColumns + " ORDER BY id DESC LIMIT $1"
)

type PostgresStore struct {
	dsn       string
	db        *sql.DB
	mu        sync.Mutex
	connected bool
}

// NewPostgresStore does not connect; the first operation does.
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

func (p *PostgresStore) resetConnection() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		_ = p.db.Close()
		p.db = nil
	}
	p.connected = false

	logger.Log.Warn().Msg("postgres connection reset")
}

// conn returns the live handle, connecting and creating the table on first use.
func (p *PostgresStore) conn(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected {
		return p.db, nil
	}

	if p.dsn == "" {
		return nil, customerrors.ErrNotConnected
	}

	db, err := sql.Open("pgx", p.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create table")
	}

	logger.Log.Info().Msg("postgres connection established")
	p.db = db
	p.connected = true
	return db, nil
}

func isConnectionError(err error) bool {
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		strings.Contains(strings.ToLower(err.Error()), "connection")
}

func (p *PostgresStore) Save(ctx context.Context, e *model.Evaluation) error {
	if e == nil {
		return customerrors.ErrInvalidValue
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	args := []any{
		e.CreatedAt, e.Source, string(e.Request.Model), e.Request.Lambda, e.Request.Mu, int64(e.Request.C),
	}
	if m := e.Metrics; m != nil {
		args = append(args, m.Model, m.R, m.Rho, m.P0, m.Pw, m.Lq, m.L, m.Wq, m.W, nil, nil)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil, nil, nil, nil, e.Error, e.ErrorKind)
	}

	return withPGRetry(ctx, func() error {
		db, err := p.conn(ctx)
		if err != nil {
			return err
		}

		var id int64
		err = db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
		if err != nil {
			logger.Log.Error().Err(err).Msg("insert evaluation")
			if isConnectionError(err) {
				p.resetConnection()
			}
			return err
		}

		e.ID = id
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner) (*model.Evaluation, error) {
	var (
		e         model.Evaluation
		kind      string
		servers   int64
		name      sql.NullString
		r, p0, pw sql.NullFloat64
		rho, lq   sql.NullFloat64
		l, wq, w  sql.NullFloat64
		errMsg    sql.NullString
		errKind   sql.NullString
	)

	err := row.Scan(&e.ID, &e.CreatedAt, &e.Source, &kind, &e.Request.Lambda, &e.Request.Mu, &servers,
		&name, &r, &rho, &p0, &pw, &lq, &l, &wq, &w, &errMsg, &errKind)
	if err != nil {
		return nil, err
	}

	e.Request.Model = model.ModelKind(kind)
	e.Request.C = int(servers)

	if errMsg.Valid {
		e.Error = errMsg.String
		e.ErrorKind = errKind.String
		return &e, nil
	}

	m := &model.Metrics{
		Model:  name.String,
		Lambda: e.Request.Lambda,
		Mu:     e.Request.Mu,
		Rho:    rho.Float64,
		Lq:     lq.Float64,
		L:      l.Float64,
		Wq:     wq.Float64,
		W:      w.Float64,
	}
	if e.Request.Model == model.ModelMMC {
		c := e.Request.C
		m.C = &c
		m.R = nullable(r)
		m.P0 = nullable(p0)
		m.Pw = nullable(pw)
	}
	e.Metrics = m

	return &e, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (p *PostgresStore) Get(ctx context.Context, id int64) (*model.Evaluation, error) {
	db, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}

	e, err := scanEvaluation(db.QueryRowContext(ctx, getQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customerrors.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select evaluation")
	}
	return e, nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]model.Evaluation, error) {
	db, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, listQuery, int64(limit))
	if err != nil {
		return nil, errors.Wrap(err, "list evaluations")
	}
	defer rows.Close()

	list := make([]model.Evaluation, 0, limit)
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan evaluation")
		}
		list = append(list, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list evaluations")
	}
	return list, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	db, err := p.conn(ctx)
	if err != nil {
		return customerrors.ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil
	}

	err := p.db.Close()
	p.db = nil
	p.connected = false
	return err
}
