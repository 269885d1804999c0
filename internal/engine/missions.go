package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"spycats/internal/domain"
)

// CreateMission stores a new unassigned mission together with its targets.
func (e Engine) CreateMission(ctx context.Context, targets []domain.NewTarget) (domain.Mission, error) {
	if n := len(targets); n < domain.MinTargets || n > domain.MaxTargets {
		return domain.Mission{}, fmt.Errorf("%w: targets must be between %d and %d, got %d", ErrValidation, domain.MinTargets, domain.MaxTargets, n)
	}
	for i, t := range targets {
		if strings.TrimSpace(t.Name) == "" {
			return domain.Mission{}, fmt.Errorf("%w: targets[%d].name is required", ErrValidation, i)
		}
		if strings.TrimSpace(t.Country) == "" {
			return domain.Mission{}, fmt.Errorf("%w: targets[%d].country is required", ErrValidation, i)
		}
	}
	m := domain.Mission{Targets: make([]domain.Target, 0, len(targets))}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertMission(ctx, tx)
		if err != nil {
			return fmt.Errorf("insert mission: %w", err)
		}
		m.ID = id
		for i, t := range targets {
			tid, err := e.Repo.InsertTarget(ctx, tx, id, i, t)
			if err != nil {
				return fmt.Errorf("insert target %d: %w", i, err)
			}
			m.Targets = append(m.Targets, domain.Target{ID: tid, MissionID: id, Name: t.Name, Country: t.Country})
		}
		return nil
	})
	if err != nil {
		return domain.Mission{}, err
	}
	transition("mission", "created")
	e.log().Info("mission created", "mission_id", m.ID, "targets", len(m.Targets))
	return m, nil
}

func (e Engine) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, id)
	if err != nil {
		return m, fmt.Errorf("mission %d: %w", id, err)
	}
	return m, nil
}

func (e Engine) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return e.Repo.ListMissions(ctx)
}

// DeleteMission removes a mission and its targets while no cat is assigned.
// Completion state does not matter.
func (e Engine) DeleteMission(ctx context.Context, id int64) error {
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		m, err := e.Repo.GetMissionTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("mission %d: %w", id, err)
		}
		if m.Assigned() {
			return fmt.Errorf("%w: cannot delete mission %d assigned to cat %d", ErrConflict, id, *m.CatID)
		}
		deleted, err := e.Repo.DeleteMission(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: mission %d was assigned", ErrConflict, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	transition("mission", "deleted")
	e.log().Info("mission deleted", "mission_id", id)
	return nil
}

// AssignCat links a free cat and an open, unassigned mission on both sides.
func (e Engine) AssignCat(ctx context.Context, missionID, catID int64) error {
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
		if err != nil {
			return fmt.Errorf("mission %d: %w", missionID, err)
		}
		if m.Assigned() {
			return fmt.Errorf("%w: mission %d already assigned", ErrConflict, missionID)
		}
		if m.Complete {
			return fmt.Errorf("%w: mission %d already completed", ErrConflict, missionID)
		}
		c, err := e.Repo.GetCatTx(ctx, tx, catID)
		if err != nil {
			return fmt.Errorf("cat %d: %w", catID, err)
		}
		if c.Assigned() {
			return fmt.Errorf("%w: cat %d already has mission %d", ErrConflict, catID, *c.MissionID)
		}
		ok, err := e.Repo.LinkMission(ctx, tx, missionID, catID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: mission %d already assigned", ErrConflict, missionID)
		}
		ok, err = e.Repo.LinkCat(ctx, tx, catID, missionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: cat %d already has a mission", ErrConflict, catID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	transition("mission", "assigned")
	e.log().Info("cat assigned", "mission_id", missionID, "cat_id", catID)
	return nil
}

// UpdateTargetNotes replaces a target's notes while both the target and its
// mission are incomplete.
func (e Engine) UpdateTargetNotes(ctx context.Context, missionID, targetID int64, notes string) error {
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		m, t, err := e.loadTarget(ctx, tx, missionID, targetID)
		if err != nil {
			return err
		}
		if t.Locked(m) {
			return fmt.Errorf("%w: cannot update notes for completed target or mission", ErrConflict)
		}
		ok, err := e.Repo.SetTargetNotes(ctx, tx, targetID, notes)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: target %d already completed", ErrConflict, targetID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	transition("target", "notes_updated")
	return nil
}

// CompleteTarget marks a target complete. When it was the mission's last open
// target the mission completes in the same transaction and its cat, if any,
// is released.
func (e Engine) CompleteTarget(ctx context.Context, missionID, targetID int64) error {
	var (
		missionDone bool
		released    *int64
	)
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		m, t, err := e.loadTarget(ctx, tx, missionID, targetID)
		if err != nil {
			return err
		}
		if t.Complete {
			return fmt.Errorf("%w: target %d already completed", ErrConflict, targetID)
		}
		if m.Complete {
			return fmt.Errorf("%w: mission %d already completed", ErrConflict, missionID)
		}
		ok, err := e.Repo.CompleteTarget(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: target %d already completed", ErrConflict, targetID)
		}
		m, err = e.Repo.GetMissionTx(ctx, tx, missionID)
		if err != nil {
			return fmt.Errorf("mission %d: %w", missionID, err)
		}
		if !m.AllTargetsComplete() {
			return nil
		}
		if err := e.Repo.CompleteMission(ctx, tx, missionID); err != nil {
			return fmt.Errorf("complete mission %d: %w", missionID, err)
		}
		if m.CatID != nil {
			ok, err := e.Repo.UnlinkCat(ctx, tx, *m.CatID, missionID)
			if err != nil {
				return fmt.Errorf("release cat %d: %w", *m.CatID, err)
			}
			if !ok {
				return fmt.Errorf("%w: cat %d does not hold mission %d", ErrConflict, *m.CatID, missionID)
			}
			released = m.CatID
		}
		missionDone = true
		return nil
	})
	if err != nil {
		return err
	}
	transition("target", "completed")
	if missionDone {
		transition("mission", "completed")
		attrs := []any{"mission_id", missionID}
		if released != nil {
			attrs = append(attrs, "released_cat_id", *released)
		}
		e.log().Info("mission completed", attrs...)
	}
	return nil
}

func (e Engine) loadTarget(ctx context.Context, tx *sql.Tx, missionID, targetID int64) (domain.Mission, domain.Target, error) {
	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return m, domain.Target{}, fmt.Errorf("mission %d: %w", missionID, err)
	}
	t, err := e.Repo.GetTargetTx(ctx, tx, missionID, targetID)
	if err != nil {
		return m, t, err
	}
	return m, t, nil
}
