package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spycats/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const catColumns = `id,name,experience,breed,salary,mission_id`

func scanCat(row rowScanner) (domain.Cat, error) {
	var c domain.Cat
	var missionID sql.NullInt64
	err := row.Scan(&c.ID, &c.Name, &c.Experience, &c.Breed, &c.Salary, &missionID)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if missionID.Valid {
		c.MissionID = &missionID.Int64
	}
	return c, nil
}

func (r Repo) InsertCat(ctx context.Context, tx *sql.Tx, c domain.Cat) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO cats(name,experience,breed,salary) VALUES (?,?,?,?)`,
		c.Name, c.Experience, c.Breed, c.Salary)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetCat(ctx context.Context, id int64) (domain.Cat, error) {
	return getCat(ctx, r.DB, id)
}

func (r Repo) GetCatTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Cat, error) {
	return getCat(ctx, tx, id)
}

func getCat(ctx context.Context, q queryer, id int64) (domain.Cat, error) {
	return scanCat(q.QueryRowContext(ctx, `SELECT `+catColumns+` FROM cats WHERE id=?`, id))
}

func (r Repo) ListCats(ctx context.Context) ([]domain.Cat, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+catColumns+` FROM cats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Cat{}
	for rows.Next() {
		c, err := scanCat(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCatSalary(ctx context.Context, tx *sql.Tx, id int64, salary float64) error {
	res, err := tx.ExecContext(ctx, `UPDATE cats SET salary=? WHERE id=?`, salary, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCat removes a cat only while it holds no mission. It reports false
// when the row exists but is assigned.
func (r Repo) DeleteCat(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM cats WHERE id=? AND mission_id IS NULL`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// LinkCat points the cat at a mission if it has none. It reports whether the
// row changed.
func (r Repo) LinkCat(ctx context.Context, tx *sql.Tx, catID, missionID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE cats SET mission_id=? WHERE id=? AND mission_id IS NULL`, missionID, catID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// UnlinkCat clears the cat's mission reference if it still points at
// missionID. It reports whether the row changed.
func (r Repo) UnlinkCat(ctx context.Context, tx *sql.Tx, catID, missionID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE cats SET mission_id=NULL WHERE id=? AND mission_id=?`, catID, missionID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r Repo) InsertMission(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO missions(complete) VALUES (0)`)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) InsertTarget(ctx context.Context, tx *sql.Tx, missionID int64, position int, t domain.NewTarget) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO targets(mission_id,position,name,country) VALUES (?,?,?,?)`,
		missionID, position, t.Name, t.Country)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return getMission(ctx, r.DB, id)
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Mission, error) {
	return getMission(ctx, tx, id)
}

func getMission(ctx context.Context, q queryer, id int64) (domain.Mission, error) {
	var m domain.Mission
	var catID sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT id,complete,cat_id FROM missions WHERE id=?`, id).Scan(&m.ID, &m.Complete, &catID)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if catID.Valid {
		m.CatID = &catID.Int64
	}
	targets, err := listTargets(ctx, q, `WHERE mission_id=?`, id)
	if err != nil {
		return m, err
	}
	m.Targets = targets
	if m.Targets == nil {
		m.Targets = []domain.Target{}
	}
	return m, nil
}

func (r Repo) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,complete,cat_id FROM missions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Mission{}
	index := map[int64]int{}
	for rows.Next() {
		var m domain.Mission
		var catID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Complete, &catID); err != nil {
			return nil, err
		}
		if catID.Valid {
			m.CatID = &catID.Int64
		}
		m.Targets = []domain.Target{}
		index[m.ID] = len(res)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	targets, err := listTargets(ctx, r.DB, "")
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if i, ok := index[t.MissionID]; ok {
			res[i].Targets = append(res[i].Targets, t)
		}
	}
	return res, nil
}

func listTargets(ctx context.Context, q queryer, where string, args ...any) ([]domain.Target, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,mission_id,name,country,notes,complete FROM targets `+where+` ORDER BY mission_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Target
	for rows.Next() {
		var t domain.Target
		if err := rows.Scan(&t.ID, &t.MissionID, &t.Name, &t.Country, &t.Notes, &t.Complete); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// LinkMission points the mission at a cat if it has none and is still open.
// It reports whether the row changed.
func (r Repo) LinkMission(ctx context.Context, tx *sql.Tx, missionID, catID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET cat_id=? WHERE id=? AND cat_id IS NULL AND complete=0`, catID, missionID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// CompleteMission marks the mission complete and drops its cat reference.
func (r Repo) CompleteMission(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET complete=1, cat_id=NULL WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMission removes an unassigned mission and, by cascade, its targets.
// It reports false when the row exists but has a cat.
func (r Repo) DeleteMission(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM missions WHERE id=? AND cat_id IS NULL`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// GetTargetTx loads a target scoped to its mission; a target owned by another
// mission is reported as not found.
func (r Repo) GetTargetTx(ctx context.Context, tx *sql.Tx, missionID, targetID int64) (domain.Target, error) {
	var t domain.Target
	err := tx.QueryRowContext(ctx, `SELECT id,mission_id,name,country,notes,complete FROM targets WHERE id=? AND mission_id=?`, targetID, missionID).
		Scan(&t.ID, &t.MissionID, &t.Name, &t.Country, &t.Notes, &t.Complete)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("target %d in mission %d: %w", targetID, missionID, ErrNotFound)
	}
	return t, err
}

// SetTargetNotes replaces notes on an incomplete target. It reports whether
// the row changed.
func (r Repo) SetTargetNotes(ctx context.Context, tx *sql.Tx, targetID int64, notes string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE targets SET notes=? WHERE id=? AND complete=0`, notes, targetID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// CompleteTarget flips an incomplete target to complete. It reports whether
// the row changed.
func (r Repo) CompleteTarget(ctx context.Context, tx *sql.Tx, targetID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE targets SET complete=1 WHERE id=? AND complete=0`, targetID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
