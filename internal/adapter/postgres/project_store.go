package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"escrow-service/internal/domain"
)

// DBTX is the subset of pgx shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProjectStorePG implements domain.ProjectStore backed by PostgreSQL.
// Update takes a row lock on the project, so concurrent operations on
// the same project queue up while different projects proceed in
// parallel.
type ProjectStorePG struct {
	pool *pgxpool.Pool
}

// NewProjectStore creates a new ProjectStorePG.
func NewProjectStore(pool *pgxpool.Pool) *ProjectStorePG {
	return &ProjectStorePG{pool: pool}
}

// Create inserts the aggregate and its creation events in one transaction.
func (s *ProjectStorePG) Create(ctx context.Context, p *domain.Project, events func(p *domain.Project) []domain.Event) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO projects (creator, title, description, goal_amount, deadline, funds_raised, escrow_balance, completed, current_milestone, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id;
`,
		p.Creator,
		p.Title,
		p.Description,
		p.GoalAmount,
		p.Deadline,
		p.FundsRaised,
		p.EscrowBalance,
		p.Completed,
		p.CurrentMilestone,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	p.ID = id

	for i, m := range p.Milestones {
		if _, err := tx.Exec(ctx, `
INSERT INTO milestones (project_id, idx, description, amount, approved, approvals)
VALUES ($1, $2, $3, $4, $5, $6);
`, id, i, m.Description, m.Amount, m.Approved, m.Approvals); err != nil {
			return 0, fmt.Errorf("insert milestone %d: %w", i, err)
		}
	}

	if events != nil {
		if err := insertEvents(ctx, tx, events(p)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create: %w", err)
	}
	return id, nil
}

// Get returns the aggregate without locking it.
func (s *ProjectStorePG) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return loadProject(ctx, s.pool, id, false)
}

// List returns newest-first summaries.
func (s *ProjectStorePG) List(ctx context.Context, limit, offset int) ([]domain.ProjectSummary, error) {
	rows, err := s.pool.Query(ctx, `
SELECT p.id, p.creator, p.title, p.goal_amount, p.funds_raised, p.deadline, p.completed, p.current_milestone,
       (SELECT COUNT(*) FROM milestones m WHERE m.project_id = p.id) AS milestone_count,
       p.created_at
FROM projects p
ORDER BY p.id DESC
LIMIT $1 OFFSET $2;
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ProjectSummary, 0, limit)
	for rows.Next() {
		var sm domain.ProjectSummary
		if err := rows.Scan(
			&sm.ID,
			&sm.Creator,
			&sm.Title,
			&sm.GoalAmount,
			&sm.FundsRaised,
			&sm.Deadline,
			&sm.Completed,
			&sm.CurrentMilestone,
			&sm.MilestoneCount,
			&sm.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project summary: %w", err)
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

// Update locks the aggregate, applies fn and commits the difference
// together with the events fn returned. Errors from fn roll the
// transaction back and are passed through unwrapped.
func (s *ProjectStorePG) Update(ctx context.Context, id int64, fn func(p *domain.Project) ([]domain.Event, error)) (*domain.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := loadProject(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	before := p.Clone()

	events, err := fn(p)
	if err != nil {
		return nil, err
	}

	if err := saveChanges(ctx, tx, before, p); err != nil {
		return nil, err
	}
	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return p, nil
}

func loadProject(ctx context.Context, db DBTX, id int64, forUpdate bool) (*domain.Project, error) {
	query := `
SELECT id, creator, title, description, goal_amount, deadline, funds_raised, escrow_balance, completed, current_milestone, created_at, updated_at
FROM projects
WHERE id = $1`
	if forUpdate {
		query += "\nFOR UPDATE"
	}

	var p domain.Project
	err := db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Creator,
		&p.Title,
		&p.Description,
		&p.GoalAmount,
		&p.Deadline,
		&p.FundsRaised,
		&p.EscrowBalance,
		&p.Completed,
		&p.CurrentMilestone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	if err := loadMilestones(ctx, db, &p); err != nil {
		return nil, err
	}
	if err := loadContributions(ctx, db, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadMilestones(ctx context.Context, db DBTX, p *domain.Project) error {
	rows, err := db.Query(ctx, `
SELECT idx, description, amount, approved, approvals
FROM milestones
WHERE project_id = $1
ORDER BY idx;
`, p.ID)
	if err != nil {
		return fmt.Errorf("load milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var m domain.Milestone
		if err := rows.Scan(&idx, &m.Description, &m.Amount, &m.Approved, &m.Approvals); err != nil {
			return fmt.Errorf("scan milestone: %w", err)
		}
		m.Voters = make(map[string]bool)
		p.Milestones = append(p.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	voterRows, err := db.Query(ctx, `
SELECT milestone_idx, voter
FROM milestone_approvals
WHERE project_id = $1;
`, p.ID)
	if err != nil {
		return fmt.Errorf("load approvals: %w", err)
	}
	defer voterRows.Close()

	for voterRows.Next() {
		var idx int
		var voter string
		if err := voterRows.Scan(&idx, &voter); err != nil {
			return fmt.Errorf("scan approval: %w", err)
		}
		if idx >= 0 && idx < len(p.Milestones) {
			p.Milestones[idx].Voters[voter] = true
		}
	}
	return voterRows.Err()
}

func loadContributions(ctx context.Context, db DBTX, p *domain.Project) error {
	rows, err := db.Query(ctx, `
SELECT contributor, amount
FROM contributions
WHERE project_id = $1;
`, p.ID)
	if err != nil {
		return fmt.Errorf("load contributions: %w", err)
	}
	defer rows.Close()

	p.Contributions = make(map[string]int64)
	for rows.Next() {
		var contributor string
		var amount int64
		if err := rows.Scan(&contributor, &amount); err != nil {
			return fmt.Errorf("scan contribution: %w", err)
		}
		p.Contributions[contributor] = amount
	}
	return rows.Err()
}

// saveChanges writes back only what fn changed. Milestone and voter
// rows never disappear and contribution entries are zeroed rather than
// deleted, so comparing against the pre-change copy is enough.
func saveChanges(ctx context.Context, tx pgx.Tx, before, after *domain.Project) error {
	if _, err := tx.Exec(ctx, `
UPDATE projects
SET funds_raised = $2, escrow_balance = $3, completed = $4, current_milestone = $5, updated_at = NOW()
WHERE id = $1;
`, after.ID, after.FundsRaised, after.EscrowBalance, after.Completed, after.CurrentMilestone); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	for i := range after.Milestones {
		am := &after.Milestones[i]
		bm := &before.Milestones[i]
		if am.Approved != bm.Approved || am.Approvals != bm.Approvals {
			if _, err := tx.Exec(ctx, `
UPDATE milestones
SET approved = $3, approvals = $4
WHERE project_id = $1 AND idx = $2;
`, after.ID, i, am.Approved, am.Approvals); err != nil {
				return fmt.Errorf("update milestone %d: %w", i, err)
			}
		}
		for voter := range am.Voters {
			if bm.Voters[voter] {
				continue
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO milestone_approvals (project_id, milestone_idx, voter)
VALUES ($1, $2, $3);
`, after.ID, i, voter); err != nil {
				return fmt.Errorf("insert approval: %w", err)
			}
		}
	}

	for contributor, amount := range after.Contributions {
		prev, existed := before.Contributions[contributor]
		if existed && prev == amount {
			continue
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO contributions (project_id, contributor, amount)
VALUES ($1, $2, $3)
ON CONFLICT (project_id, contributor) DO UPDATE
SET amount = EXCLUDED.amount,
    updated_at = NOW();
`, after.ID, contributor, amount); err != nil {
			return fmt.Errorf("upsert contribution: %w", err)
		}
	}

	return nil
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []domain.Event) error {
	for _, e := range events {
		if _, err := tx.Exec(ctx, `
INSERT INTO outbox_events (id, project_id, kind, payload, occurred_at, status)
VALUES ($1, $2, $3, $4, $5, 'pending');
`, e.ID, e.ProjectID, e.Kind, e.Payload, e.OccurredAt); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}
	return nil
}

var _ domain.ProjectStore = (*ProjectStorePG)(nil)
