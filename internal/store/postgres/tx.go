package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

var _ store.Tx = (*tx)(nil)

// tx runs every write in a savepoint so a failed statement, such as a
// uniqueness violation, does not abort the surrounding transaction.
type tx struct {
	tx pgx.Tx
}

func (t *tx) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return pgconn.CommandTag{}, mapPostgresError(err)
	}
	tag, err := sp.Exec(ctx, sql, args...)
	if err != nil {
		_ = sp.Rollback(ctx)
		return tag, mapPostgresError(err)
	}
	return tag, mapPostgresError(sp.Commit(ctx))
}

func (t *tx) insertID(ctx context.Context, sql string, args ...any) (int64, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return 0, mapPostgresError(err)
	}
	var id int64
	if err := sp.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		_ = sp.Rollback(ctx)
		return 0, mapPostgresError(err)
	}
	return id, mapPostgresError(sp.Commit(ctx))
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return mapPostgresError(err)
}

// Units

const unitColumns = `id, name, slug`

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	if err := row.Scan(&u.ID, &u.Name, &u.Slug); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *tx) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	unit, err := scanUnit(t.tx.QueryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, store.ErrUnitNotFound)
	}
	return unit, nil
}

func (t *tx) GetUnitByName(ctx context.Context, name string) (*models.Unit, error) {
	unit, err := scanUnit(t.tx.QueryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE name = $1`, name))
	if err != nil {
		return nil, notFound(err, store.ErrUnitNotFound)
	}
	return unit, nil
}

func (t *tx) CreateUnit(ctx context.Context, unit *models.Unit) error {
	id, err := t.insertID(ctx, `INSERT INTO units (name, slug) VALUES ($1, $2) RETURNING id`, unit.Name, unit.Slug)
	if err != nil {
		return err
	}
	unit.ID = id

	log.Debug().Int64("unit_id", id).Str("name", unit.Name).Msg("Created unit")
	return nil
}

func (t *tx) DeleteUnit(ctx context.Context, id int64) error {
	tag, err := t.exec(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUnitNotFound
	}
	return nil
}

func (t *tx) ListUnits(ctx context.Context) ([]*models.Unit, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+unitColumns+` FROM units ORDER BY id`)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collect(rows, scanUnit)
}

// Departments

const departmentColumns = `id, name, slug, alias, unit_id`

func scanDepartment(row pgx.Row) (*models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Slug, &d.Alias, &d.UnitID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *tx) getDepartment(ctx context.Context, where string, arg any) (*models.Department, error) {
	dept, err := scanDepartment(t.tx.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE `+where+` = $1`, arg))
	if err != nil {
		return nil, notFound(err, store.ErrDepartmentNotFound)
	}
	return dept, nil
}

func (t *tx) GetDepartment(ctx context.Context, id int64) (*models.Department, error) {
	return t.getDepartment(ctx, "id", id)
}

func (t *tx) GetDepartmentByName(ctx context.Context, name string) (*models.Department, error) {
	return t.getDepartment(ctx, "name", name)
}

func (t *tx) GetDepartmentBySlug(ctx context.Context, slug string) (*models.Department, error) {
	return t.getDepartment(ctx, "slug", slug)
}

func (t *tx) CreateDepartment(ctx context.Context, dept *models.Department) error {
	id, err := t.insertID(ctx, `
		INSERT INTO departments (name, slug, alias, unit_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, dept.Name, dept.Slug, dept.Alias, dept.UnitID)
	if err != nil {
		return err
	}
	dept.ID = id

	log.Debug().Int64("department_id", id).Str("name", dept.Name).Msg("Created department")
	return nil
}

func (t *tx) UpdateDepartment(ctx context.Context, dept *models.Department) error {
	tag, err := t.exec(ctx, `
		UPDATE departments SET
			name = $2,
			slug = $3,
			alias = $4,
			unit_id = $5
		WHERE id = $1
	`, dept.ID, dept.Name, dept.Slug, dept.Alias, dept.UnitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDepartmentNotFound
	}
	return nil
}

func (t *tx) DeleteDepartment(ctx context.Context, id int64) error {
	if id == models.AdminDepartmentID {
		return store.ErrProtected
	}
	tag, err := t.exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDepartmentNotFound
	}
	return nil
}

func (t *tx) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY id`)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collect(rows, scanDepartment)
}

// Workers

const workerColumns = `id, name, preferred_name, pronouns, email, phone, notes, contract_code, campus_label,
	home_department_id, organizing_department_id, unit_chair_of, department_chair_of,
	active, added, updated, password_hash`

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	err := row.Scan(
		&w.ID, &w.Name, &w.PreferredName, &w.Pronouns, &w.Email, &w.Phone, &w.Notes, &w.ContractCode, &w.CampusLabel,
		&w.HomeDepartmentID, &w.OrganizingDepartmentID, &w.UnitChairOf, &w.DepartmentChairOf,
		&w.Active, &w.Added, &w.Updated, &w.PasswordHash,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *tx) getWorker(ctx context.Context, where string, arg any) (*models.Worker, error) {
	worker, err := scanWorker(t.tx.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE `+where+` = $1`, arg))
	if err != nil {
		return nil, notFound(err, store.ErrWorkerNotFound)
	}
	return worker, nil
}

func (t *tx) GetWorker(ctx context.Context, id int64) (*models.Worker, error) {
	return t.getWorker(ctx, "id", id)
}

func (t *tx) GetWorkerByName(ctx context.Context, name string) (*models.Worker, error) {
	return t.getWorker(ctx, "name", name)
}

func (t *tx) GetWorkerByEmail(ctx context.Context, email string) (*models.Worker, error) {
	return t.getWorker(ctx, "email", email)
}

func (t *tx) CreateWorker(ctx context.Context, w *models.Worker) error {
	id, err := t.insertID(ctx, `
		INSERT INTO workers (
			name, preferred_name, pronouns, email, phone, notes, contract_code, campus_label,
			home_department_id, organizing_department_id, unit_chair_of, department_chair_of,
			active, added, updated, password_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING id
	`,
		w.Name, w.PreferredName, w.Pronouns, w.Email, w.Phone, w.Notes, w.ContractCode, w.CampusLabel,
		w.HomeDepartmentID, w.OrganizingDepartmentID, w.UnitChairOf, w.DepartmentChairOf,
		w.Active, w.Added, w.Updated, w.PasswordHash,
	)
	if err != nil {
		return err
	}
	w.ID = id
	return nil
}

func (t *tx) UpdateWorker(ctx context.Context, w *models.Worker) error {
	tag, err := t.exec(ctx, `
		UPDATE workers SET
			name = $2,
			preferred_name = $3,
			pronouns = $4,
			email = $5,
			phone = $6,
			notes = $7,
			contract_code = $8,
			campus_label = $9,
			home_department_id = $10,
			organizing_department_id = $11,
			unit_chair_of = $12,
			department_chair_of = $13,
			active = $14,
			added = $15,
			updated = $16,
			password_hash = $17
		WHERE id = $1
	`,
		w.ID, w.Name, w.PreferredName, w.Pronouns, w.Email, w.Phone, w.Notes, w.ContractCode, w.CampusLabel,
		w.HomeDepartmentID, w.OrganizingDepartmentID, w.UnitChairOf, w.DepartmentChairOf,
		w.Active, w.Added, w.Updated, w.PasswordHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrWorkerNotFound
	}
	return nil
}

func (t *tx) DeleteWorker(ctx context.Context, id int64) error {
	tag, err := t.exec(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrWorkerNotFound
	}
	return nil
}

func (t *tx) ListWorkers(ctx context.Context, filter store.WorkerFilter) ([]*models.Worker, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Active != nil {
		add("active = $%d", *filter.Active)
	}
	if filter.OrganizingDepartmentID != nil {
		add("organizing_department_id = $%d", *filter.OrganizingDepartmentID)
	}
	if filter.HomeDepartmentID != nil {
		add("home_department_id = $%d", *filter.HomeDepartmentID)
	}
	if filter.UsersOnly {
		where = append(where, "password_hash IS NOT NULL AND password_hash <> ''")
	}

	query := `SELECT ` + workerColumns + ` FROM workers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collect(rows, scanWorker)
}

func (t *tx) DeactivateWorkersExcept(ctx context.Context, keep map[int64]struct{}) (int, error) {
	ids := make([]int64, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}
	tag, err := t.exec(ctx, `UPDATE workers SET active = FALSE WHERE active AND NOT (id = ANY($1))`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate workers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Structure tests

const structureTestColumns = `id, name, description, active, added`

func scanStructureTest(row pgx.Row) (*models.StructureTest, error) {
	var st models.StructureTest
	if err := row.Scan(&st.ID, &st.Name, &st.Description, &st.Active, &st.Added); err != nil {
		return nil, err
	}
	return &st, nil
}

func (t *tx) GetStructureTest(ctx context.Context, id int64) (*models.StructureTest, error) {
	st, err := scanStructureTest(t.tx.QueryRow(ctx, `SELECT `+structureTestColumns+` FROM structure_tests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, store.ErrStructureTestNotFound)
	}
	return st, nil
}

func (t *tx) CreateStructureTest(ctx context.Context, st *models.StructureTest) error {
	id, err := t.insertID(ctx, `
		INSERT INTO structure_tests (name, description, active, added)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, st.Name, st.Description, st.Active, st.Added)
	if err != nil {
		return err
	}
	st.ID = id
	return nil
}

func (t *tx) UpdateStructureTest(ctx context.Context, st *models.StructureTest) error {
	tag, err := t.exec(ctx, `
		UPDATE structure_tests SET
			name = $2,
			description = $3,
			active = $4
		WHERE id = $1
	`, st.ID, st.Name, st.Description, st.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrStructureTestNotFound
	}
	return nil
}

func (t *tx) DeleteStructureTest(ctx context.Context, id int64) error {
	tag, err := t.exec(ctx, `DELETE FROM structure_tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete structure test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrStructureTestNotFound
	}
	return nil
}

func (t *tx) ListStructureTests(ctx context.Context) ([]*models.StructureTest, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+structureTestColumns+` FROM structure_tests ORDER BY id`)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collect(rows, scanStructureTest)
}

// Participation

func (t *tx) AddParticipation(ctx context.Context, p *models.Participation) (bool, error) {
	tag, err := t.exec(ctx, `
		INSERT INTO participation (worker_id, structure_test_id, added)
		VALUES ($1, $2, $3)
		ON CONFLICT (worker_id, structure_test_id) DO NOTHING
	`, p.WorkerID, p.StructureTestID, p.Added)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) RemoveParticipation(ctx context.Context, workerID, structureTestID int64) (bool, error) {
	tag, err := t.exec(ctx, `
		DELETE FROM participation
		WHERE worker_id = $1 AND structure_test_id = $2
	`, workerID, structureTestID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) ListParticipation(ctx context.Context, filter store.ParticipationFilter) ([]*models.Participation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT worker_id, structure_test_id, added
		FROM participation
		WHERE ($1::BIGINT IS NULL OR worker_id = $1)
		  AND ($2::BIGINT IS NULL OR structure_test_id = $2)
		ORDER BY worker_id, structure_test_id
	`, filter.WorkerID, filter.StructureTestID)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collect(rows, func(row pgx.Row) (*models.Participation, error) {
		var p models.Participation
		if err := row.Scan(&p.WorkerID, &p.StructureTestID, &p.Added); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(err)
	}
	return out, nil
}
