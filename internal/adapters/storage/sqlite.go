package storage

// sqlite.go: historial de runs de simulación.
//
// Estrategia:
//   - `runs`: una fila por run con las métricas principales en columnas (para
//     listar y ordenar) y el Summary completo en JSON.
//   - `trial_outcomes`: una fila por trial. Solo si saveTrials está activo:
//     100k trials por run crecen rápido.
//   - Prune automático al arrancar: runs (y sus trials) de más de 90 días.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/razor389/prop-simulator/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id             TEXT PRIMARY KEY,
    account_type       TEXT    NOT NULL,
    condition          TEXT    NOT NULL,
    seed               TEXT    NOT NULL,
    iterations         INTEGER NOT NULL,
    completed          INTEGER NOT NULL,
    failed_trials      INTEGER NOT NULL DEFAULT 0,
    cancelled          INTEGER NOT NULL DEFAULT 0,
    started_at         TEXT    NOT NULL,
    duration_ms        INTEGER NOT NULL,
    matching_trials    INTEGER NOT NULL,
    mean_balance       REAL    NOT NULL DEFAULT 0,
    median_balance     REAL    NOT NULL DEFAULT 0,
    mean_net_payout    REAL    NOT NULL DEFAULT 0,
    busted_pct         REAL    NOT NULL DEFAULT 0,
    summary_json       TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS trial_outcomes (
    run_id        TEXT    NOT NULL,
    idx           INTEGER NOT NULL,
    final_balance REAL    NOT NULL,
    days_survived INTEGER NOT NULL,
    end_state     TEXT    NOT NULL,
    payouts_taken INTEGER NOT NULL,
    total_payouts REAL    NOT NULL,
    net_payout    REAL    NOT NULL,
    PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account_type);
`

const (
	retentionRuns = 90 * 24 * time.Hour
	// ancho fijo: las comparaciones de texto en SQL ordenan igual que el tiempo
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db         *sql.DB
	saveTrials bool
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos. Con saveTrials también guarda cada
// TrialOutcome de los runs.
func NewSQLiteStorage(path string, saveTrials bool) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db, saveTrials: saveTrials}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resumen del run y, si corresponde, sus outcomes, en una
// sola transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *domain.RunResult) error {
	if run == nil {
		return nil
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, account_type, condition, seed, iterations, completed,
			 failed_trials, cancelled, started_at, duration_ms, matching_trials,
			 mean_balance, median_balance, mean_net_payout, busted_pct, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.AccountType,
		run.Summary.Condition,
		strconv.FormatUint(run.Seed, 10),
		run.Iterations,
		run.Completed,
		run.FailedTrials,
		boolToInt(run.Cancelled),
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Summary.MatchingTrials,
		run.Summary.Balance.Mean,
		run.Summary.Balance.Median,
		run.Summary.NetPayout.Mean,
		run.Summary.EndStatePercentages[domain.StatusBusted],
		string(summary),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.RunID, err)
	}

	if s.saveTrials && len(run.Outcomes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO trial_outcomes
				(run_id, idx, final_balance, days_survived, end_state,
				 payouts_taken, total_payouts, net_payout)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: prepare: %w", err)
		}
		defer stmt.Close()

		for _, o := range run.Outcomes {
			if _, err := stmt.ExecContext(ctx,
				run.RunID, o.Index, o.FinalBalance, o.DaysSurvived, string(o.EndState),
				o.PayoutsTaken, o.TotalPayouts, o.NetPayout,
			); err != nil {
				return fmt.Errorf("storage.SaveRun: insert trial %d: %w", o.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

const runColumns = `run_id, account_type, seed, iterations, completed, failed_trials,
	cancelled, started_at, duration_ms, summary_json`

// ListRuns devuelve los últimos runs, más recientes primero. limit <= 0 = 20.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRuns: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun devuelve un run por ID, o domain.ErrRunNotFound.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*domain.RunResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage.GetRun: %s: %w", runID, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: %w", err)
	}
	return run, nil
}

// GetTrialOutcomes devuelve los outcomes guardados de un run, ordenados por índice.
func (s *SQLiteStorage) GetTrialOutcomes(ctx context.Context, runID string) ([]domain.TrialOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, final_balance, days_survived, end_state, payouts_taken, total_payouts, net_payout
		FROM trial_outcomes
		WHERE run_id = ?
		ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrialOutcomes: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TrialOutcome
	for rows.Next() {
		var o domain.TrialOutcome
		var state string
		if err := rows.Scan(&o.Index, &o.FinalBalance, &o.DaysSurvived, &state,
			&o.PayoutsTaken, &o.TotalPayouts, &o.NetPayout); err != nil {
			return nil, fmt.Errorf("storage.GetTrialOutcomes: scan row: %w", err)
		}
		o.EndState = domain.Status(state)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunResult, error) {
	var (
		run        domain.RunResult
		seed       string
		cancelled  int
		startedAt  string
		durationMs int64
		summary    string
	)
	if err := row.Scan(&run.RunID, &run.AccountType, &seed, &run.Iterations, &run.Completed,
		&run.FailedTrials, &cancelled, &startedAt, &durationMs, &summary); err != nil {
		return nil, err
	}
	run.Seed, _ = strconv.ParseUint(seed, 10, 64)
	run.Cancelled = cancelled == 1
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("decode summary of %s: %w", run.RunID, err)
	}
	return &run, nil
}

// pruneOld elimina runs antiguos y sus trials para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(timeLayout)
	s.db.ExecContext(ctx, `DELETE FROM trial_outcomes WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
