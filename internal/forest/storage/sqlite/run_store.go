package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/treeseg/internal/forest/pipeline"
	"github.com/banshee-data/treeseg/internal/version"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted segmentation run.
type Run struct {
	RunID          string          `json:"run_id"`
	InputPath      string          `json:"input_path"`
	ParamsJSON     json.RawMessage `json:"params_json,omitempty"`
	Version        string          `json:"version"`
	TotalPoints    int             `json:"total_points"`
	GroundPoints   int             `json:"ground_points"`
	RasterRows     int             `json:"raster_rows"`
	RasterCols     int             `json:"raster_cols"`
	TreeCount      int             `json:"tree_count"`
	Unassigned     int             `json:"unassigned"`
	Skipped        bool            `json:"skipped"`
	Stage1Assigned int             `json:"stage1_assigned"`
	Stage2Assigned int             `json:"stage2_assigned"`
	Stage3Assigned int             `json:"stage3_assigned"`
	Stage4Assigned int             `json:"stage4_assigned"`
	DurationNanos  int64           `json:"duration_nanos"`
	CreatedAt      int64           `json:"created_at"`
}

// TreeTopRecord is one detected tree top with its crown summary.
type TreeTopRecord struct {
	TreeID      int     `json:"tree_id"`
	PointIndex  int     `json:"point_index"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	Points      int     `json:"points"`
	CrownRadius float64 `json:"crown_radius"`
	MaxHeight   float64 `json:"max_height"`
}

// RoundRecord is the growth of one Stage-2 round.
type RoundRecord struct {
	Round    int `json:"round"`
	Assigned int `json:"assigned"`
}

// RunStore provides persistence for segmentation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// RecordsFromResult converts a pipeline result into storable records.
func RecordsFromResult(res *pipeline.Result, inputPath string) (*Run, []TreeTopRecord, []RoundRecord, error) {
	params, err := json.Marshal(res.Config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal params: %w", err)
	}
	rows, cols := res.RasterDims()
	run := &Run{
		RunID:         res.RunID,
		InputPath:     inputPath,
		ParamsJSON:    params,
		Version:       version.String(),
		TotalPoints:   res.TotalPoints,
		GroundPoints:  res.GroundPoints,
		RasterRows:    rows,
		RasterCols:    cols,
		TreeCount:     len(res.TreeTops),
		Unassigned:    res.Unassigned,
		Skipped:       res.SegmentationSkipped,
		DurationNanos: res.Timings.Total.Nanoseconds(),
		CreatedAt:     res.StartedAt.UnixNano(),
	}

	var rounds []RoundRecord
	if seg := res.Segmentation; seg != nil {
		run.Stage1Assigned = seg.Stage1Assigned
		run.Stage2Assigned = seg.Stage2Assigned()
		run.Stage3Assigned = seg.Stage3Assigned
		run.Stage4Assigned = seg.Stage4Assigned
		for _, r := range seg.Rounds {
			rounds = append(rounds, RoundRecord{Round: r.Round, Assigned: r.Assigned})
		}
	}

	tops := make([]TreeTopRecord, len(res.TreeTops))
	for i, t := range res.TreeTops {
		tops[i] = TreeTopRecord{
			TreeID:     t.Index,
			PointIndex: t.PointIndex,
			X:          t.Position.X,
			Y:          t.Position.Y,
			Z:          t.Position.Z,
			Row:        t.Row,
			Col:        t.Col,
		}
		if i < len(res.Crowns) {
			tops[i].Points = res.Crowns[i].Points
			tops[i].CrownRadius = res.Crowns[i].CrownRadius
			tops[i].MaxHeight = res.Crowns[i].MaxHeight
		}
	}
	return run, tops, rounds, nil
}

// SaveResult persists a pipeline result and returns the stored run.
func (s *RunStore) SaveResult(res *pipeline.Result, inputPath string) (*Run, error) {
	run, tops, rounds, err := RecordsFromResult(res, inputPath)
	if err != nil {
		return nil, err
	}
	if err := s.InsertRun(run, tops, rounds); err != nil {
		return nil, err
	}
	return run, nil
}

// InsertRun persists a run with its tree tops and rounds in one
// transaction. If RunID is empty, a UUID is generated.
func (s *RunStore) InsertRun(run *Run, tops []TreeTopRecord, rounds []RoundRecord) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO segmentation_runs (
				run_id, input_path, params_json, version,
				total_points, ground_points, raster_rows, raster_cols,
				tree_count, unassigned, skipped,
				stage1_assigned, stage2_assigned, stage3_assigned, stage4_assigned,
				duration_nanos, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.InputPath, paramsStr, run.Version,
			run.TotalPoints, run.GroundPoints, run.RasterRows, run.RasterCols,
			run.TreeCount, run.Unassigned, run.Skipped,
			run.Stage1Assigned, run.Stage2Assigned, run.Stage3Assigned, run.Stage4Assigned,
			run.DurationNanos, run.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, t := range tops {
			_, err = tx.Exec(`
				INSERT INTO segmentation_tree_tops (
					run_id, tree_id, point_index, x, y, z, cell_row, cell_col,
					point_count, crown_radius, max_height
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.RunID, t.TreeID, t.PointIndex, t.X, t.Y, t.Z, t.Row, t.Col,
				t.Points, t.CrownRadius, t.MaxHeight,
			)
			if err != nil {
				return err
			}
		}

		for _, r := range rounds {
			_, err = tx.Exec(`INSERT INTO segmentation_rounds (run_id, round, assigned) VALUES (?, ?, ?)`,
				run.RunID, r.Round, r.Assigned)
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	diagf("stored run %s: %d tree tops, %d rounds", run.RunID, len(tops), len(rounds))
	return nil
}

const runColumns = `
	run_id, input_path, params_json, version,
	total_points, ground_points, raster_rows, raster_cols,
	tree_count, unassigned, skipped,
	stage1_assigned, stage2_assigned, stage3_assigned, stage4_assigned,
	duration_nanos, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var r Run
	var paramsStr sql.NullString
	err := sc.Scan(
		&r.RunID, &r.InputPath, &paramsStr, &r.Version,
		&r.TotalPoints, &r.GroundPoints, &r.RasterRows, &r.RasterCols,
		&r.TreeCount, &r.Unassigned, &r.Skipped,
		&r.Stage1Assigned, &r.Stage2Assigned, &r.Stage3Assigned, &r.Stage4Assigned,
		&r.DurationNanos, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &r, nil
}

// GetRun returns a single run by id.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM segmentation_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM segmentation_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetTreeTops returns the tree tops of a run in tree-id order.
func (s *RunStore) GetTreeTops(runID string) ([]TreeTopRecord, error) {
	rows, err := s.db.Query(`
		SELECT tree_id, point_index, x, y, z, cell_row, cell_col,
		       point_count, crown_radius, max_height
		FROM segmentation_tree_tops
		WHERE run_id = ?
		ORDER BY tree_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tree tops: %w", err)
	}
	defer rows.Close()

	var out []TreeTopRecord
	for rows.Next() {
		var t TreeTopRecord
		if err := rows.Scan(&t.TreeID, &t.PointIndex, &t.X, &t.Y, &t.Z, &t.Row, &t.Col,
			&t.Points, &t.CrownRadius, &t.MaxHeight); err != nil {
			return nil, fmt.Errorf("scan tree top row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetRounds returns the Stage-2 rounds of a run in round order.
func (s *RunStore) GetRounds(runID string) ([]RoundRecord, error) {
	rows, err := s.db.Query(`
		SELECT round, assigned FROM segmentation_rounds
		WHERE run_id = ?
		ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		if err := rows.Scan(&r.Round, &r.Assigned); err != nil {
			return nil, fmt.Errorf("scan round row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its child rows.
func (s *RunStore) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM segmentation_rounds WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete rounds: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM segmentation_tree_tops WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete tree tops: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM segmentation_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}
