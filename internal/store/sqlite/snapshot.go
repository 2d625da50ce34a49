package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

//go:embed schema.sql
var schema string

const dateLayout = time.DateOnly

// CreateSchema creates the tables if they do not exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// WriteSnapshot replaces the content of every table with the snapshot in a
// single transaction.
func WriteSnapshot(ctx context.Context, db *sql.DB, snap *store.Snapshot) (retErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"participation", "structuretest", "worker", "department", "unit"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, u := range snap.Units {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unit (id, name, slug) VALUES (?, ?, ?)`,
			u.ID, u.Name, u.Slug,
		); err != nil {
			return fmt.Errorf("failed to insert unit %d: %w", u.ID, err)
		}
	}

	for _, d := range snap.Departments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO department (id, name, slug, alias, unit_id) VALUES (?, ?, ?, ?, ?)`,
			d.ID, d.Name, d.Slug, d.Alias, d.UnitID,
		); err != nil {
			return fmt.Errorf("failed to insert department %d: %w", d.ID, err)
		}
	}

	workerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO worker (
			id, name, preferred_name, pronouns, email, phone, notes, contract, unit,
			department_id, organizing_dept_id, unit_chair_id, dept_chair_id,
			active, added, updated, password
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare worker insert: %w", err)
	}
	defer workerStmt.Close()

	for _, w := range snap.Workers {
		if _, err := workerStmt.ExecContext(ctx,
			w.ID, w.Name, w.PreferredName, w.Pronouns, w.Email, w.Phone, w.Notes, w.ContractCode, w.CampusLabel,
			w.HomeDepartmentID, w.OrganizingDepartmentID, w.UnitChairOf, w.DepartmentChairOf,
			w.Active, w.Added.Format(dateLayout), w.Updated.Format(dateLayout), w.PasswordHash,
		); err != nil {
			return fmt.Errorf("failed to insert worker %d: %w", w.ID, err)
		}
	}

	for _, st := range snap.StructureTests {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO structuretest (id, name, description, active, added) VALUES (?, ?, ?, ?, ?)`,
			st.ID, st.Name, st.Description, st.Active, st.Added.Format(dateLayout),
		); err != nil {
			return fmt.Errorf("failed to insert structure test %d: %w", st.ID, err)
		}
	}

	participationStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO participation (worker_id, structure_test_id, added) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare participation insert: %w", err)
	}
	defer participationStmt.Close()

	for _, p := range snap.Participation {
		if _, err := participationStmt.ExecContext(ctx, p.WorkerID, p.StructureTestID, p.Added.Format(dateLayout)); err != nil {
			return fmt.Errorf("failed to insert participation %d/%d: %w", p.WorkerID, p.StructureTestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads every table.
func ReadSnapshot(ctx context.Context, db *sql.DB) (*store.Snapshot, error) {
	snap := &store.Snapshot{}

	if err := query(ctx, db, `SELECT id, name, slug FROM unit ORDER BY id`, func(rows *sql.Rows) error {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Slug); err != nil {
			return err
		}
		snap.Units = append(snap.Units, &u)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read units: %w", err)
	}

	if err := query(ctx, db, `SELECT id, name, slug, alias, unit_id FROM department ORDER BY id`, func(rows *sql.Rows) error {
		var (
			d      models.Department
			alias  sql.NullString
			unitID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Slug, &alias, &unitID); err != nil {
			return err
		}
		d.Alias = nullString(alias)
		d.UnitID = nullInt(unitID)
		snap.Departments = append(snap.Departments, &d)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read departments: %w", err)
	}

	if err := query(ctx, db, `
		SELECT id, name, preferred_name, pronouns, email, phone, notes, contract, unit,
			department_id, organizing_dept_id, unit_chair_id, dept_chair_id,
			active, added, updated, password
		FROM worker ORDER BY id
	`, func(rows *sql.Rows) error {
		var (
			w                                                  models.Worker
			preferred, pronouns, email, phone, notes, contract sql.NullString
			campus, password                                   sql.NullString
			home, organizing, unitChair, deptChair             sql.NullInt64
			added, updated                                     string
		)
		if err := rows.Scan(&w.ID, &w.Name, &preferred, &pronouns, &email, &phone, &notes, &contract, &campus,
			&home, &organizing, &unitChair, &deptChair,
			&w.Active, &added, &updated, &password); err != nil {
			return err
		}
		w.PreferredName = nullString(preferred)
		w.Pronouns = nullString(pronouns)
		w.Email = nullString(email)
		w.Phone = nullString(phone)
		w.Notes = nullString(notes)
		w.ContractCode = nullString(contract)
		w.CampusLabel = nullString(campus)
		w.PasswordHash = nullString(password)
		w.HomeDepartmentID = nullInt(home)
		w.OrganizingDepartmentID = nullInt(organizing)
		w.UnitChairOf = nullInt(unitChair)
		w.DepartmentChairOf = nullInt(deptChair)

		var err error
		if w.Added, err = time.Parse(dateLayout, added); err != nil {
			return fmt.Errorf("worker %d added: %w", w.ID, err)
		}
		if w.Updated, err = time.Parse(dateLayout, updated); err != nil {
			return fmt.Errorf("worker %d updated: %w", w.ID, err)
		}
		snap.Workers = append(snap.Workers, &w)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read workers: %w", err)
	}

	if err := query(ctx, db, `SELECT id, name, description, active, added FROM structuretest ORDER BY id`, func(rows *sql.Rows) error {
		var (
			st    models.StructureTest
			added string
		)
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.Active, &added); err != nil {
			return err
		}
		var err error
		if st.Added, err = time.Parse(dateLayout, added); err != nil {
			return fmt.Errorf("structure test %d added: %w", st.ID, err)
		}
		snap.StructureTests = append(snap.StructureTests, &st)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read structure tests: %w", err)
	}

	if err := query(ctx, db, `SELECT worker_id, structure_test_id, added FROM participation ORDER BY worker_id, structure_test_id`, func(rows *sql.Rows) error {
		var (
			p     models.Participation
			added string
		)
		if err := rows.Scan(&p.WorkerID, &p.StructureTestID, &added); err != nil {
			return err
		}
		var err error
		if p.Added, err = time.Parse(dateLayout, added); err != nil {
			return fmt.Errorf("participation %d/%d added: %w", p.WorkerID, p.StructureTestID, err)
		}
		snap.Participation = append(snap.Participation, &p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read participation: %w", err)
	}

	return snap, nil
}

func query(ctx context.Context, db *sql.DB, q string, scan func(rows *sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
