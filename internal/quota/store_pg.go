package quota

import (
	"context"
	"database/sql"
	"errors"
)

type pgStore struct {
	DB      *sql.DB
	freeCap int
}

// NewPGStore constructs a Postgres-backed quota store. freeCap seeds new
// free-tier rows.
func NewPGStore(db *sql.DB, freeCap int) *pgStore {
	return &pgStore{DB: db, freeCap: freeCap}
}

func (s *pgStore) Get(ctx context.Context, userID string) (Quota, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Quota{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	q, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Quota{}, err
	}
	if err = tx.Commit(); err != nil {
		return Quota{}, err
	}
	return q, nil
}

// Admit charges one credit under row lock. Two racing submissions from a
// free user with one credit left cannot both pass: the second blocks on the
// FOR UPDATE lock and observes the incremented counter.
func (s *pgStore) Admit(ctx context.Context, userID string) (Quota, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Quota{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	q, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Quota{}, err
	}

	if q.Plan != PlanPro {
		if q.Used >= q.Cap {
			err = ErrQuotaExceeded
			return Quota{}, err
		}
		q.Used++
		if _, err = tx.ExecContext(ctx, `
UPDATE user_quota SET used = $1 WHERE user_id = $2`, q.Used, userID); err != nil {
			return Quota{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Quota{}, err
	}
	return q, nil
}

func (s *pgStore) SetPlan(ctx context.Context, userID, plan string) (Quota, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Quota{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	q, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Quota{}, err
	}
	q.Plan = plan
	if _, err = tx.ExecContext(ctx, `
UPDATE user_quota SET plan = $1 WHERE user_id = $2`, plan, userID); err != nil {
		return Quota{}, err
	}
	if err = tx.Commit(); err != nil {
		return Quota{}, err
	}
	return q, nil
}

func (s *pgStore) Reset(ctx context.Context, userID string) (Quota, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Quota{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `
INSERT INTO user_quota (user_id, plan, used, cap)
VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id) DO UPDATE SET used = 0`, userID, PlanFree, s.freeCap); err != nil {
		return Quota{}, err
	}
	if err = tx.Commit(); err != nil {
		return Quota{}, err
	}
	return s.Get(ctx, userID)
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Quota, error) {
	q := Quota{UserID: userID}
	row := tx.QueryRowContext(ctx, `
SELECT plan, used, cap FROM user_quota WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&q.Plan, &q.Used, &q.Cap)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			q.Plan = PlanFree
			q.Used = 0
			q.Cap = s.freeCap
			if _, err = tx.ExecContext(ctx, `
INSERT INTO user_quota (user_id, plan, used, cap) VALUES ($1, $2, $3, $4)`,
				userID, q.Plan, q.Used, q.Cap); err != nil {
				return Quota{}, err
			}
			return q, nil
		}
		return Quota{}, err
	}
	return q, nil
}
