// Package timing tracks how long layout runs take so the API can estimate
// the duration of a freshly enqueued run.
package timing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AddLayoutRunTime records the wall-clock duration of the most recent
// layout run of a graph.
func AddLayoutRunTime(ctx context.Context, graphID string, durationMs int64, conn *pgxpool.Pool) error {
	_, err := conn.Exec(
		ctx,
		`UPDATE layout_runs SET duration_ms = $2
		 WHERE id = (
			SELECT id FROM layout_runs
			WHERE graph_id = $1
			ORDER BY created_at DESC, id DESC LIMIT 1
		 )`,
		graphID, durationMs,
	)
	return err
}

// PredictLayoutRunTime estimates the duration of the next run of a graph
// from the average of its last five recorded runs. Returns 0 when no
// history exists.
func PredictLayoutRunTime(ctx context.Context, graphID string, conn *pgxpool.Pool) (int64, error) {
	var estimate int64
	err := conn.QueryRow(
		ctx,
		`SELECT COALESCE(AVG(duration_ms), 0)::bigint FROM (
			SELECT duration_ms FROM layout_runs
			WHERE graph_id = $1 AND duration_ms > 0
			ORDER BY created_at DESC, id DESC LIMIT 5
		 ) recent`,
		graphID,
	).Scan(&estimate)
	if err != nil {
		return 0, err
	}
	return estimate, nil
}
