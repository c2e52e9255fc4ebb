package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/E4Saber/stock-analyzer-sub000/internal/pipeline"
)

// schema holds the output-record tables. Raw market data never lands here;
// this is the storage-collaborator side of the engine's output contract.
const schema = `
CREATE TABLE IF NOT EXISTS composite_signals (
	symbol       TEXT        NOT NULL,
	as_of        DATE        NOT NULL,
	run_id       UUID        NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	tier         TEXT        NOT NULL,
	final_tier   TEXT        NOT NULL,
	passes       BOOLEAN     NOT NULL,
	flags        JSONB       NOT NULL DEFAULT '[]',
	detail       JSONB       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (symbol, as_of, run_id)
);

CREATE TABLE IF NOT EXISTS lifecycle_states (
	id           TEXT        NOT NULL,
	as_of        DATE        NOT NULL,
	run_id       UUID        NOT NULL,
	stage        TEXT        NOT NULL,
	entered_at   DATE        NOT NULL,
	clamp_warn   BOOLEAN     NOT NULL,
	detail       JSONB       NOT NULL,
	PRIMARY KEY (id, as_of, run_id)
);

CREATE TABLE IF NOT EXISTS position_plans (
	symbol       TEXT        NOT NULL,
	as_of        DATE        NOT NULL,
	run_id       UUID        NOT NULL,
	tier         TEXT        NOT NULL,
	stage        TEXT        NOT NULL,
	main_force   TEXT        NOT NULL,
	build_allowed BOOLEAN    NOT NULL,
	detail       JSONB       NOT NULL,
	PRIMARY KEY (symbol, as_of, run_id)
);
`

// PostgresSink persists cycle output records. Writes go through a circuit
// breaker: a dead database degrades the engine to artifact-only output
// instead of stalling cycles on connection timeouts.
type PostgresSink struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
}

// NewPostgresSink connects, ensures the schema, and wires the breaker.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure output schema: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "output-sink",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("sink breaker state change")
		},
	})
	return &PostgresSink{db: db, breaker: breaker}, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// WriteCycle persists every output record of a cycle in one transaction.
func (s *PostgresSink) WriteCycle(ctx context.Context, result *pipeline.CycleResult) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.writeCycle(ctx, result)
	})
	return err
}

func (s *PostgresSink) writeCycle(ctx context.Context, result *pipeline.CycleResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cycle tx: %w", err)
	}
	defer tx.Rollback()

	asOf := result.Date.Format("2006-01-02")
	for _, res := range result.Results {
		flags, err := json.Marshal(res.Verdict.Flags)
		if err != nil {
			return fmt.Errorf("marshal flags for %s: %w", res.Symbol, err)
		}
		detail, err := json.Marshal(res.Signal)
		if err != nil {
			return fmt.Errorf("marshal signal for %s: %w", res.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO composite_signals (symbol, as_of, run_id, score, tier, final_tier, passes, flags, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, as_of, run_id) DO NOTHING`,
			res.Symbol, asOf, result.RunID, res.Signal.Score, res.Signal.TierTag,
			res.Verdict.FinalTierTag, res.Verdict.Passes, flags, detail,
		); err != nil {
			return fmt.Errorf("insert signal %s: %w", res.Symbol, err)
		}

		if res.Plan != nil {
			planDetail, err := json.Marshal(res.Plan)
			if err != nil {
				return fmt.Errorf("marshal plan for %s: %w", res.Symbol, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO position_plans (symbol, as_of, run_id, tier, stage, main_force, build_allowed, detail)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (symbol, as_of, run_id) DO NOTHING`,
				res.Symbol, asOf, result.RunID, res.Plan.Tier, res.Plan.Stage,
				res.Plan.MainForce, res.Plan.BuildAllowed, planDetail,
			); err != nil {
				return fmt.Errorf("insert plan %s: %w", res.Symbol, err)
			}
		}
	}

	for _, state := range result.Themes {
		detail, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal lifecycle state %s: %w", state.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lifecycle_states (id, as_of, run_id, stage, entered_at, clamp_warn, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id, as_of, run_id) DO NOTHING`,
			state.ID, asOf, result.RunID, state.StageTag,
			state.EnteredAt.Format("2006-01-02"), state.ClampWarning, detail,
		); err != nil {
			return fmt.Errorf("insert lifecycle state %s: %w", state.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cycle tx: %w", err)
	}
	return nil
}
