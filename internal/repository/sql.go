package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

const recordsTable = "analysis_records"

// SQLStore keeps records in one table: the full JSON document plus the
// columns List orders by. Pages are ordered by (uploaded_at, id).
type SQLStore struct {
	db     *DB
	logger *slog.Logger
}

func NewSQLStore(db *DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, logger: logger}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.db.Dialect)
}

// Migrate creates the records table and its ordering index if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	table, args := s.builder().CreateTable(recordsTable).IfNotExists().
		Columns(
			entsql.Column("id").Type("varchar(36)").Attr("NOT NULL"),
			entsql.Column("bill_type").Type("text").Attr("NOT NULL"),
			entsql.Column("uploaded_at").Type("bigint").Attr("NOT NULL"),
			entsql.Column("document").Type("text").Attr("NOT NULL"),
		).
		PrimaryKey("id").
		Query()
	if _, err := s.db.SQL.ExecContext(ctx, table, args...); err != nil {
		return common.PersistenceError("create table", err)
	}
	index, args := s.builder().CreateIndex("analysis_records_uploaded_at_id").IfNotExists().
		Table(recordsTable).Columns("uploaded_at", "id").
		Query()
	if _, err := s.db.SQL.ExecContext(ctx, index, args...); err != nil {
		return common.PersistenceError("create index", err)
	}
	s.logger.Info("records table ready", "dialect", s.db.Dialect)
	return nil
}

func (s *SQLStore) Create(ctx context.Context, rec *entity.AnalysisRecord) (string, error) {
	id := uuid.NewString()
	doc, err := prepare(rec, id)
	if err != nil {
		return "", err
	}
	query, args := s.builder().Insert(recordsTable).
		Columns("id", "bill_type", "uploaded_at", "document").
		Values(id, rec.BillType, rec.UploadedAt.UnixNano(), string(doc)).
		Query()
	if _, err := s.db.SQL.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("failed to insert record", "id", id, "error", err)
		return "", common.PersistenceError("insert record", err)
	}
	return id, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*entity.AnalysisRecord, error) {
	query, args := s.builder().Select("document").
		From(entsql.Table(recordsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	var doc string
	err := s.db.SQL.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError("bill " + id + " not found")
	}
	if err != nil {
		return nil, common.PersistenceError("select record", err)
	}
	return decode([]byte(doc))
}

func (s *SQLStore) List(ctx context.Context, page, perPage int) ([]*entity.AnalysisRecord, int, error) {
	if err := checkPage(page, perPage); err != nil {
		return nil, 0, err
	}
	countQuery, args := s.builder().Select(entsql.Count("*")).
		From(entsql.Table(recordsTable)).
		Query()
	var total int
	if err := s.db.SQL.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, common.PersistenceError("count records", err)
	}

	query, args := s.builder().Select("document").
		From(entsql.Table(recordsTable)).
		OrderBy("uploaded_at", "id").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Query()
	rows, err := s.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, common.PersistenceError("list records", err)
	}
	defer rows.Close()

	out := make([]*entity.AnalysisRecord, 0, perPage)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, common.PersistenceError("scan record", err)
		}
		rec, err := decode([]byte(doc))
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.PersistenceError("list records", err)
	}
	return out, total, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx, 0); err != nil {
		return common.PersistenceError("database ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
