package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/internal/errors"
	"relialab/ports"

	"github.com/jmoiron/sqlx"
)

// defaultListLimit applies when List is called without a positive limit
const defaultListLimit = 50

// analysisRepository implements ports.AnalysisRepository on the analyses table
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

type analysisRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	Distribution    string          `db:"distribution"`
	Method          string          `db:"method"`
	RequestedMethod string          `db:"requested_method"`
	FellBack        bool            `db:"fell_back"`
	Parameters      []byte          `db:"parameters"`
	Overrides       []byte          `db:"overrides"`
	Sample          []byte          `db:"sample"`
	Model           []byte          `db:"model"`
	RSquared        sql.NullFloat64 `db:"r_squared"`
	Warning         sql.NullString  `db:"warning"`
	CreatedAt       time.Time       `db:"created_at"`
}

const analysisColumns = `id, name, distribution, method, requested_method, fell_back,
	parameters, overrides, sample, model, r_squared, warning, created_at`

// Save inserts an analysis, replacing any stored analysis with the same ID
func (r *analysisRepository) Save(ctx context.Context, a *lifedata.Analysis) error {
	paramsJSON, err := json.Marshal(parameterValues(a.Model.Parameters))
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}
	overridesJSON, err := nullableJSON(a.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}
	sampleJSON, err := json.Marshal(a.Sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	modelJSON, err := json.Marshal(a.Model)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	rSquared := sql.NullFloat64{Float64: a.Model.RSquared(), Valid: !math.IsNaN(a.Model.RSquared())}
	warning := sql.NullString{String: a.Warning, Valid: a.Warning != ""}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			distribution = EXCLUDED.distribution,
			method = EXCLUDED.method,
			requested_method = EXCLUDED.requested_method,
			fell_back = EXCLUDED.fell_back,
			parameters = EXCLUDED.parameters,
			overrides = EXCLUDED.overrides,
			sample = EXCLUDED.sample,
			model = EXCLUDED.model,
			r_squared = EXCLUDED.r_squared,
			warning = EXCLUDED.warning
	`,
		a.ID.String(), a.Name, string(a.Model.Distribution), string(a.Model.Method), string(a.Model.RequestedMethod), a.Model.FellBack,
		paramsJSON, overridesJSON, sampleJSON, modelJSON, rSquared, warning, a.CreatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to save analysis", err)
	}
	return nil
}

// Get retrieves an analysis by ID
func (r *analysisRepository) Get(ctx context.Context, id core.AnalysisID) (*lifedata.Analysis, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
		}
		return nil, errors.DatabaseError("failed to get analysis", err)
	}
	return row.toAnalysis()
}

// List returns analyses newest first
func (r *analysisRepository) List(ctx context.Context, limit, offset int) ([]*lifedata.Analysis, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var rows []analysisRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+analysisColumns+`
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list analyses", err)
	}

	analyses := make([]*lifedata.Analysis, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAnalysis()
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, nil
}

// Delete removes an analysis
func (r *analysisRepository) Delete(ctx context.Context, id core.AnalysisID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id.String())
	if err != nil {
		return errors.DatabaseError("failed to delete analysis", err)
	}
	return requireAffected(result, id)
}

// SaveOverrides replaces the manual parameter overrides; an empty map clears them
func (r *analysisRepository) SaveOverrides(ctx context.Context, id core.AnalysisID, overrides map[string]float64) error {
	overridesJSON, err := nullableJSON(overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `UPDATE analyses SET overrides = $2 WHERE id = $1`, id.String(), overridesJSON)
	if err != nil {
		return errors.DatabaseError("failed to save overrides", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id core.AnalysisID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
	}
	return nil
}

func (row analysisRow) toAnalysis() (*lifedata.Analysis, error) {
	a := &lifedata.Analysis{
		ID:        core.AnalysisID(row.ID),
		Name:      row.Name,
		Warning:   row.Warning.String,
		CreatedAt: row.CreatedAt,
	}

	if len(row.Sample) > 0 {
		if err := json.Unmarshal(row.Sample, &a.Sample); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
		}
	}
	if len(row.Overrides) > 0 {
		if err := json.Unmarshal(row.Overrides, &a.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
		}
	}

	if len(row.Model) > 0 {
		if err := json.Unmarshal(row.Model, &a.Model); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model: %w", err)
		}
		return a, nil
	}

	// Rows written before the model column only carry the scalar columns
	a.Model = lifedata.FittedModel{
		Distribution:    lifedata.Distribution(row.Distribution),
		Method:          lifedata.Method(row.Method),
		RequestedMethod: lifedata.Method(row.RequestedMethod),
		FellBack:        row.FellBack,
		LogLikelihood:   math.NaN(),
		FailureCount:    len(a.Sample.Failures),
		SuspensionCount: len(a.Sample.Suspensions),
		MaxTime:         a.Sample.MaxTime(),
	}
	var values map[string]float64
	if len(row.Parameters) > 0 {
		if err := json.Unmarshal(row.Parameters, &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
	}
	if len(values) > 0 {
		params, err := lifedata.ParametersFromValues(a.Model.Distribution, values)
		if err != nil {
			return nil, err
		}
		a.Model.Parameters = params
	}
	if row.RSquared.Valid {
		a.Model.Plot = &lifedata.PlotData{RSquared: row.RSquared.Float64}
	}
	return a, nil
}

func parameterValues(p lifedata.Parameters) map[string]float64 {
	out := map[string]float64{}
	if p == nil {
		return out
	}
	for k, v := range p.Values() {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func nullableJSON(m map[string]float64) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
