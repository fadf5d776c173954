package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// AnalysisRecord is a summary row for listing archived analyses without
// deserializing the full document.
type AnalysisRecord struct {
	AnalysisID  string    `json:"analysis_id"`
	GeneratedAt time.Time `json:"generated_at"`
	TotalRisks  int       `json:"total_risks"`
	MaxScore    float64   `json:"max_risk_score"`
}

// SaveAnalysis archives a completed analysis as a JSONB document. Saving
// the same analysis ID twice replaces the document, which keeps retried
// writes idempotent.
func (db *DB) SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("storage: marshal analysis: %w", err)
	}

	var maxScore float64
	for _, r := range result.Risks {
		if r.RiskScore > maxScore {
			maxScore = r.RiskScore
		}
	}

	if _, err := db.pool.Exec(ctx,
		`INSERT INTO analyses (analysis_id, generated_at, total_risks, max_risk_score, result)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (analysis_id) DO UPDATE
		 SET generated_at = EXCLUDED.generated_at,
		     total_risks = EXCLUDED.total_risks,
		     max_risk_score = EXCLUDED.max_risk_score,
		     result = EXCLUDED.result`,
		result.AnalysisID, result.GeneratedAt, len(result.Risks), maxScore, payload,
	); err != nil {
		return fmt.Errorf("storage: save analysis: %w", err)
	}
	return nil
}

// GetAnalysis fetches an archived analysis by ID.
// Returns ErrNotFound when no such analysis exists.
func (db *DB) GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisResult, error) {
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result FROM analyses WHERE analysis_id = $1`, analysisID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get analysis: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("storage: unmarshal analysis %s: %w", analysisID, err)
	}
	return &result, nil
}

// ListAnalyses returns summary rows for the most recent analyses, newest
// first.
func (db *DB) ListAnalyses(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT analysis_id, generated_at, total_risks, max_risk_score
		 FROM analyses
		 ORDER BY generated_at DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.AnalysisID, &rec.GeneratedAt, &rec.TotalRisks, &rec.MaxScore); err != nil {
			return nil, fmt.Errorf("storage: scan analysis record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneAnalyses deletes analyses generated before the retention window
// and returns the number removed.
func (db *DB) PruneAnalyses(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM analyses
		 WHERE generated_at < now() - ($1 * interval '1 microsecond')`,
		retention.Microseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: prune analyses: %w", err)
	}
	return tag.RowsAffected(), nil
}
