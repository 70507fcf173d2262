package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	URL          string        `envconfig:"URL" split_words:"true" required:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
}

type recordRow struct {
	bun.BaseModel `bun:"table:outreach_records,alias:r"`

	ID        string    `bun:"id,pk,type:uuid"`
	Kind      string    `bun:"kind,notnull"`
	OwnerID   string    `bun:"owner_id,notnull"`
	Data      string    `bun:"data,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r recordRow) toRecord() contractx.Record {
	return contractx.Record{
		ID:        r.ID,
		Kind:      contractx.CollectionKind(r.Kind),
		OwnerID:   r.OwnerID,
		Data:      []byte(r.Data),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// PostgresStore persists records as jsonb rows; every query is filtered by owner.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func OpenPostgres(cfg PostgresConfig) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.URL)
	if dsn == "" {
		return nil, fmt.Errorf("%w: database url is required", contractx.ErrValidation)
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.DialTimeout > 0 {
		opts = append(opts, pgdriver.WithDialTimeout(cfg.DialTimeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates the records table and its owner index when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*recordRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*recordRow)(nil)).
		Index("outreach_records_owner_kind_idx").
		Column("owner_id", "kind", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create records index: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, kind contractx.CollectionKind, ownerID string, data any) (contractx.Record, error) {
	if err := validate(kind, ownerID); err != nil {
		return contractx.Record{}, err
	}
	raw, err := encode(data)
	if err != nil {
		return contractx.Record{}, err
	}

	row := &recordRow{
		ID:        uuid.NewString(),
		Kind:      string(kind),
		OwnerID:   ownerID,
		Data:      string(raw),
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return contractx.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return row.toRecord(), nil
}

func (s *PostgresStore) QueryRecords(ctx context.Context, kind contractx.CollectionKind, ownerID string) ([]contractx.Record, error) {
	if err := validate(kind, ownerID); err != nil {
		return nil, err
	}

	var rows []recordRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("r.owner_id = ?", ownerID).
		Where("r.kind = ?", string(kind)).
		OrderExpr("r.created_at ASC, r.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	out := make([]contractx.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
