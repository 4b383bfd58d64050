package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/phishscan/internal/model"
)

// SaveAnalysis appends an analysis to the history.
func (d *DB) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to serialize analysis: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO analyses (url, timestamp, score, tier, analysis_json)
	VALUES (?, ?, ?, ?, ?)
	`, a.URL, a.AnalyzedAt.UTC().Format(time.RFC3339Nano), a.Score, a.Tier, string(analysisJSON))
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// LatestAnalysis returns the most recent analysis of url, or nil if there is none.
func (d *DB) LatestAnalysis(ctx context.Context, url string) (*model.Analysis, error) {
	var analysisJSON string
	err := d.db.QueryRowContext(ctx, `
	SELECT analysis_json FROM analyses
	WHERE url = ?
	ORDER BY id DESC
	LIMIT 1
	`, url).Scan(&analysisJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var a model.Analysis
	if err := json.Unmarshal([]byte(analysisJSON), &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return &a, nil
}

// AnalysisMetadata summarizes one stored analysis.
type AnalysisMetadata struct {
	ID        int64
	URL       string
	Timestamp time.Time
	Score     float64
	Tier      string
}

// History lists stored analyses newest first. An empty url lists every URL.
// A limit of zero or less means no limit.
func (d *DB) History(ctx context.Context, url string, limit int) ([]AnalysisMetadata, error) {
	query := `SELECT id, url, timestamp, score, tier FROM analyses`
	var args []any
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []AnalysisMetadata
	for rows.Next() {
		var meta AnalysisMetadata
		var timestamp string
		var tier sql.NullString
		if err := rows.Scan(&meta.ID, &meta.URL, &timestamp, &meta.Score, &tier); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Tier = tier.String
		results = append(results, meta)
	}
	return results, rows.Err()
}
