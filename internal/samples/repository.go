package samples

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"avaliar/appraisal-backend/internal/valuation"
)

// Repository defines the interface for sample data access. It serves the
// valuation cascade as well as the sample management API.
type Repository interface {
	valuation.SampleRepository

	Create(ctx context.Context, sample *valuation.Sample) error
	CreateBatch(ctx context.Context, samples []valuation.Sample) error
	Get(ctx context.Context, id string) (*valuation.Sample, error)
	List(ctx context.Context, filters ListFilters) ([]valuation.Sample, int, error)
	Delete(ctx context.Context, id string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Schema creates the samples table used by PostgresRepository
const Schema = `
CREATE TABLE IF NOT EXISTS market_samples (
	id                  TEXT PRIMARY KEY,
	category            TEXT NOT NULL,
	city                TEXT NOT NULL,
	state               TEXT NOT NULL,
	neighborhood        TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	subtype             TEXT NOT NULL DEFAULT '',
	price               DOUBLE PRECISION NOT NULL,
	total_area          DOUBLE PRECISION NOT NULL,
	built_area          DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_per_unit      DOUBLE PRECISION NOT NULL,
	source              TEXT NOT NULL DEFAULT '',
	sample_date         TIMESTAMPTZ NOT NULL,
	topography          TEXT NOT NULL DEFAULT '',
	access              TEXT NOT NULL DEFAULT '',
	surface             TEXT NOT NULL DEFAULT '',
	land_use_capability TEXT NOT NULL DEFAULT '',
	public_improvements TEXT NOT NULL DEFAULT '',
	occupation          TEXT NOT NULL DEFAULT '',
	improvements        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_market_samples_location
	ON market_samples (category, lower(state), lower(city));
`

const sampleColumns = `
	id, category, city, state, neighborhood, address, subtype, price, total_area,
	built_area, price_per_unit, source, sample_date, topography, access, surface,
	land_use_capability, public_improvements, occupation, improvements`

// sampleRow is the database shape of a sample
type sampleRow struct {
	ID                 string    `db:"id"`
	Category           string    `db:"category"`
	City               string    `db:"city"`
	State              string    `db:"state"`
	Neighborhood       string    `db:"neighborhood"`
	Address            string    `db:"address"`
	Subtype            string    `db:"subtype"`
	Price              float64   `db:"price"`
	TotalArea          float64   `db:"total_area"`
	BuiltArea          float64   `db:"built_area"`
	PricePerUnit       float64   `db:"price_per_unit"`
	Source             string    `db:"source"`
	SampleDate         time.Time `db:"sample_date"`
	Topography         string    `db:"topography"`
	Access             string    `db:"access"`
	Surface            string    `db:"surface"`
	LandUseCapability  string    `db:"land_use_capability"`
	PublicImprovements string    `db:"public_improvements"`
	Occupation         string    `db:"occupation"`
	Improvements       string    `db:"improvements"`
}

func toRow(s valuation.Sample) sampleRow {
	return sampleRow{
		ID:                 s.ID,
		Category:           string(s.Category),
		City:               s.City,
		State:              s.State,
		Neighborhood:       s.Neighborhood,
		Address:            s.Address,
		Subtype:            s.Subtype,
		Price:              s.Price,
		TotalArea:          s.TotalArea,
		BuiltArea:          s.BuiltArea,
		PricePerUnit:       s.PricePerUnit,
		Source:             s.Source,
		SampleDate:         s.Date,
		Topography:         s.Topography,
		Access:             s.Access,
		Surface:            s.Surface,
		LandUseCapability:  s.LandUseCapability,
		PublicImprovements: s.PublicImprovements,
		Occupation:         s.Occupation,
		Improvements:       s.Improvements,
	}
}

func (r sampleRow) toSample() valuation.Sample {
	return valuation.Sample{
		ID:           r.ID,
		Category:     valuation.Category(r.Category),
		City:         r.City,
		State:        r.State,
		Neighborhood: r.Neighborhood,
		Address:      r.Address,
		Subtype:      r.Subtype,
		Price:        r.Price,
		TotalArea:    r.TotalArea,
		BuiltArea:    r.BuiltArea,
		PricePerUnit: r.PricePerUnit,
		Source:       r.Source,
		Date:         r.SampleDate,
		RuralAttributes: valuation.RuralAttributes{
			Topography:         r.Topography,
			Access:             r.Access,
			Surface:            r.Surface,
			LandUseCapability:  r.LandUseCapability,
			PublicImprovements: r.PublicImprovements,
			Occupation:         r.Occupation,
			Improvements:       r.Improvements,
		},
	}
}

func toSamples(rows []sampleRow) []valuation.Sample {
	out := make([]valuation.Sample, len(rows))
	for i, r := range rows {
		out[i] = r.toSample()
	}
	return out
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the samples table if it does not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate samples schema: %w", err)
	}
	return nil
}

// =====================================================
// Valuation queries
// =====================================================

func (r *PostgresRepository) FilterSamples(ctx context.Context, category valuation.Category, city, state, subtype string) ([]valuation.Sample, error) {
	conditions := []string{"category = $1", "lower(state) = lower($2)"}
	args := []interface{}{string(category), state}

	if city != "" {
		args = append(args, city)
		conditions = append(conditions, fmt.Sprintf("lower(city) = lower($%d)", len(args)))
	}
	if subtype != "" {
		args = append(args, subtype)
		conditions = append(conditions, fmt.Sprintf("lower(subtype) = lower($%d)", len(args)))
	}

	query := `SELECT ` + sampleColumns + ` FROM market_samples WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY sample_date DESC, id`

	var rows []sampleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter samples: %w", err)
	}
	return toSamples(rows), nil
}

func (r *PostgresRepository) SamplesByCities(ctx context.Context, cities []string, state string, category valuation.Category, subtype string) ([]valuation.Sample, error) {
	if len(cities) == 0 {
		return []valuation.Sample{}, nil
	}

	lowered := make([]string, len(cities))
	for i, c := range cities {
		lowered[i] = strings.ToLower(c)
	}

	query := `SELECT ` + sampleColumns + ` FROM market_samples
		WHERE category = $1 AND lower(state) = lower($2) AND lower(city) = ANY($3)`
	args := []interface{}{string(category), state, pq.Array(lowered)}
	if subtype != "" {
		query += ` AND lower(subtype) = lower($4)`
		args = append(args, subtype)
	}
	query += ` ORDER BY sample_date DESC, id`

	var rows []sampleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query samples by cities: %w", err)
	}
	return toSamples(rows), nil
}

// =====================================================
// Sample management
// =====================================================

const insertSample = `
	INSERT INTO market_samples (` + sampleColumns + `) VALUES (
		:id, :category, :city, :state, :neighborhood, :address, :subtype, :price,
		:total_area, :built_area, :price_per_unit, :source, :sample_date, :topography,
		:access, :surface, :land_use_capability, :public_improvements, :occupation,
		:improvements
	)`

func (r *PostgresRepository) Create(ctx context.Context, sample *valuation.Sample) error {
	if _, err := r.db.NamedExecContext(ctx, insertSample, toRow(*sample)); err != nil {
		return fmt.Errorf("failed to create sample: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, samples []valuation.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range samples {
		if _, err := tx.NamedExecContext(ctx, insertSample, toRow(s)); err != nil {
			return fmt.Errorf("failed to insert sample %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*valuation.Sample, error) {
	var row sampleRow
	err := r.db.GetContext(ctx, &row, `SELECT `+sampleColumns+` FROM market_samples WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	s := row.toSample()
	return &s, nil
}

func (r *PostgresRepository) List(ctx context.Context, filters ListFilters) ([]valuation.Sample, int, error) {
	filters = filters.normalize()

	var conditions []string
	var args []interface{}
	argCount := 0

	if filters.Category != "" {
		argCount++
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, string(filters.Category))
	}
	if filters.State != "" {
		argCount++
		conditions = append(conditions, fmt.Sprintf("lower(state) = lower($%d)", argCount))
		args = append(args, filters.State)
	}
	if filters.City != "" {
		argCount++
		conditions = append(conditions, fmt.Sprintf("lower(city) = lower($%d)", argCount))
		args = append(args, filters.City)
	}
	if filters.Subtype != "" {
		argCount++
		conditions = append(conditions, fmt.Sprintf("lower(subtype) = lower($%d)", argCount))
		args = append(args, filters.Subtype)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM market_samples`+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`SELECT %s FROM market_samples%s ORDER BY sample_date DESC, id LIMIT $%d OFFSET $%d`,
		sampleColumns, whereClause, argCount+1, argCount+2)
	args = append(args, filters.PageSize, offset)

	var rows []sampleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list samples: %w", err)
	}
	return toSamples(rows), totalCount, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM market_samples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSampleNotFound
	}
	return nil
}

func (r *PostgresRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM market_samples WHERE sample_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged samples: %w", err)
	}
	return n, nil
}
