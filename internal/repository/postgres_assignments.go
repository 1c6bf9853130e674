package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"surveystream-data/internal/domain"
)

type PostgresAssignmentsRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentsRepository(db *sql.DB) *PostgresAssignmentsRepository {
	return &PostgresAssignmentsRepository{db: db}
}

func (r *PostgresAssignmentsRepository) ListByForm(ctx context.Context, formUID string) ([]*AssignmentView, error) {
	if formUID == "" {
		return []*AssignmentView{}, nil
	}

	q := `
		SELECT
			t.target_uid::text,
			t.target_id,
			t.language,
			t.gender,
			t.location_uid::text,
			a.enumerator_uid::text,
			e.enumerator_id,
			e.name,
			e.email
		FROM targets t
		LEFT JOIN assignments a ON a.target_uid = t.target_uid AND a.form_uid = t.form_uid
		LEFT JOIN enumerators e ON e.enumerator_uid = a.enumerator_uid
		WHERE t.form_uid = $1
		ORDER BY t.target_id
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*AssignmentView{}
	for rows.Next() {
		var v AssignmentView
		var enumeratorUID sql.NullString
		if err := rows.Scan(&v.TargetUID, &v.TargetID, &v.Language, &v.Gender,
			&v.LocationUID, &enumeratorUID, &v.EnumeratorID, &v.EnumeratorName,
			&v.EnumeratorEmail); err != nil {
			return nil, err
		}
		if enumeratorUID.Valid {
			uid := enumeratorUID.String
			v.AssignedEnumeratorUID = &uid
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// ApplyBatch: validation and mutation in one transaction. The form's
// current rows are locked first, every check runs against the locked
// state, and any validation failure rolls the whole batch back with zero
// writes. Classification happens against the pre-mutation state.
func (r *PostgresAssignmentsRepository) ApplyBatch(ctx context.Context, formUID string, pairs []domain.AssignmentPair) (*domain.AssignmentCounts, error) {
	if formUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}
	if len(pairs) == 0 {
		return &domain.AssignmentCounts{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the form's assignment rows for the duration of the batch
	current := map[string]*string{}
	rows, err := tx.QueryContext(ctx,
		`SELECT target_uid::text, enumerator_uid::text
		 FROM assignments
		 WHERE form_uid = $1
		 FOR UPDATE`,
		formUID,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var targetUID string
		var enumeratorUID sql.NullString
		if err := rows.Scan(&targetUID, &enumeratorUID); err != nil {
			rows.Close()
			return nil, err
		}
		if enumeratorUID.Valid {
			uid := enumeratorUID.String
			current[targetUID] = &uid
		} else {
			current[targetUID] = nil
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	facts, err := r.loadBatchFacts(ctx, tx, formUID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateAssignmentBatch(pairs, facts); err != nil {
		return nil, err
	}

	counts := domain.ClassifyAssignments(current, pairs)

	for _, p := range pairs {
		var enumeratorVal interface{}
		if p.EnumeratorUID != nil {
			enumeratorVal = *p.EnumeratorUID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (target_uid, enumerator_uid, form_uid)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (target_uid)
			 DO UPDATE SET enumerator_uid = EXCLUDED.enumerator_uid`,
			p.TargetUID, enumeratorVal, formUID,
		); err != nil {
			return nil, wrapIntegrityError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapIntegrityError(err)
	}
	return &counts, nil
}

// loadBatchFacts: everything domain.ValidateAssignmentBatch needs, read
// within the apply transaction
func (r *PostgresAssignmentsRepository) loadBatchFacts(ctx context.Context, tx *sql.Tx, formUID string) (domain.AssignmentBatchFacts, error) {
	facts := domain.AssignmentBatchFacts{
		KnownTargets:        map[string]bool{},
		KnownEnumerators:    map[string]bool{},
		TargetIDs:           map[string]string{},
		EnumeratorIDs:       map[string]string{},
		UnassignableTargets: map[string]bool{},
		DropoutEnumerators:  map[string]bool{},
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT t.target_uid::text, t.target_id, ts.target_assignable
		 FROM targets t
		 LEFT JOIN target_statuses ts ON ts.target_uid = t.target_uid
		 WHERE t.form_uid = $1`,
		formUID,
	)
	if err != nil {
		return facts, err
	}
	for rows.Next() {
		var targetUID, targetID string
		var assignable sql.NullBool
		if err := rows.Scan(&targetUID, &targetID, &assignable); err != nil {
			rows.Close()
			return facts, err
		}
		facts.KnownTargets[targetUID] = true
		facts.TargetIDs[targetUID] = targetID
		// NULL status = not yet computed, treated as assignable
		if assignable.Valid && !assignable.Bool {
			facts.UnassignableTargets[targetUID] = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return facts, err
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx,
		`SELECT e.enumerator_uid::text, e.enumerator_id, sf.status
		 FROM enumerators e
		 JOIN surveyor_forms sf ON sf.enumerator_uid = e.enumerator_uid
		 WHERE sf.form_uid = $1`,
		formUID,
	)
	if err != nil {
		return facts, err
	}
	defer rows.Close()
	for rows.Next() {
		var enumeratorUID, enumeratorID, status string
		if err := rows.Scan(&enumeratorUID, &enumeratorID, &status); err != nil {
			return facts, err
		}
		facts.KnownEnumerators[enumeratorUID] = true
		facts.EnumeratorIDs[enumeratorUID] = enumeratorID
		if status == domain.EnumeratorStatusDropout {
			facts.DropoutEnumerators[enumeratorUID] = true
		}
	}
	return facts, rows.Err()
}

func (r *PostgresAssignmentsRepository) ReleaseByEnumerator(ctx context.Context, formUID, enumeratorUID string) ([]string, error) {
	if formUID == "" || enumeratorUID == "" {
		return nil, fmt.Errorf("form_uid and enumerator_uid are required")
	}

	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM assignments
		 WHERE form_uid = $1 AND enumerator_uid = $2
		 RETURNING target_uid::text`,
		formUID, enumeratorUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to release assignments: %w", err)
	}
	defer rows.Close()

	released := []string{}
	for rows.Next() {
		var targetUID string
		if err := rows.Scan(&targetUID); err != nil {
			return nil, err
		}
		released = append(released, targetUID)
	}
	return released, rows.Err()
}

// Productivity: computed on read so the totals always reflect live target
// statuses. Dropout enumerators are excluded from the aggregates.
func (r *PostgresAssignmentsRepository) Productivity(ctx context.Context, formUID string) ([]*domain.EnumeratorProductivity, error) {
	if formUID == "" {
		return []*domain.EnumeratorProductivity{}, nil
	}

	q := `
		SELECT
			e.enumerator_uid::text,
			e.enumerator_id,
			e.name,
			COUNT(a.target_uid) AS total_assigned,
			COUNT(a.target_uid) FILTER (WHERE ts.target_assignable = FALSE) AS total_complete
		FROM enumerators e
		JOIN surveyor_forms sf ON sf.enumerator_uid = e.enumerator_uid AND sf.form_uid = $1
		LEFT JOIN assignments a ON a.enumerator_uid = e.enumerator_uid AND a.form_uid = $1
		LEFT JOIN target_statuses ts ON ts.target_uid = a.target_uid
		WHERE sf.status <> 'Dropout'
		GROUP BY e.enumerator_uid, e.enumerator_id, e.name
		ORDER BY e.enumerator_id
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.EnumeratorProductivity{}
	for rows.Next() {
		var p domain.EnumeratorProductivity
		if err := rows.Scan(&p.EnumeratorUID, &p.EnumeratorID, &p.Name,
			&p.TotalAssigned, &p.TotalComplete); err != nil {
			return nil, err
		}
		p.TotalPending = p.TotalAssigned - p.TotalComplete
		out = append(out, &p)
	}
	return out, rows.Err()
}

// wrapIntegrityError: constraint violations at commit surface as
// domain.IntegrityError (500 + rollback), other errors pass through
func wrapIntegrityError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Class() == "23" {
		return &domain.IntegrityError{Message: fmt.Sprintf("assignment constraint violation: %s", pqErr.Message)}
	}
	return err
}
