package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"spycats/internal/breed"
	"spycats/internal/domain"
)

// CatCreateOptions are parameters for creating a cat.
type CatCreateOptions struct {
	Name       string
	Experience int
	Breed      string
	Salary     float64
}

// CreateCat validates the breed and stores a new unassigned cat. The breed
// check happens before any write; an unreachable validator fails the call.
func (e Engine) CreateCat(ctx context.Context, opts CatCreateOptions) (domain.Cat, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Name == "" {
		return domain.Cat{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(opts.Breed) == "" {
		return domain.Cat{}, fmt.Errorf("%w: breed is required", ErrValidation)
	}
	if opts.Experience < 0 {
		return domain.Cat{}, fmt.Errorf("%w: experience must not be negative", ErrValidation)
	}
	if e.Breeds == nil {
		return domain.Cat{}, fmt.Errorf("%w: no breed validator configured", ErrDependencyUnavailable)
	}
	verdict, err := e.Breeds.Check(ctx, opts.Breed)
	switch verdict {
	case breed.Accepted:
	case breed.Rejected:
		return domain.Cat{}, fmt.Errorf("%w: invalid breed %q", ErrValidation, opts.Breed)
	default:
		if err == nil {
			err = errors.New("no verdict")
		}
		return domain.Cat{}, fmt.Errorf("%w: breed validation failed: %v", ErrDependencyUnavailable, err)
	}

	c := domain.Cat{
		Name:       opts.Name,
		Experience: opts.Experience,
		Breed:      opts.Breed,
		Salary:     opts.Salary,
	}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertCat(ctx, tx, c)
		if err != nil {
			return fmt.Errorf("insert cat: %w", err)
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return domain.Cat{}, err
	}
	transition("cat", "created")
	e.log().Info("cat created", "cat_id", c.ID, "breed", c.Breed)
	return c, nil
}

func (e Engine) GetCat(ctx context.Context, id int64) (domain.Cat, error) {
	c, err := e.Repo.GetCat(ctx, id)
	if err != nil {
		return c, fmt.Errorf("cat %d: %w", id, err)
	}
	return c, nil
}

func (e Engine) ListCats(ctx context.Context) ([]domain.Cat, error) {
	return e.Repo.ListCats(ctx)
}

// UpdateCatSalary changes the salary only. Any value is accepted.
func (e Engine) UpdateCatSalary(ctx context.Context, id int64, salary float64) (domain.Cat, error) {
	var c domain.Cat
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateCatSalary(ctx, tx, id, salary); err != nil {
			return fmt.Errorf("cat %d: %w", id, err)
		}
		var err error
		c, err = e.Repo.GetCatTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Cat{}, err
	}
	transition("cat", "salary_updated")
	return c, nil
}

// DeleteCat removes a cat that holds no mission.
func (e Engine) DeleteCat(ctx context.Context, id int64) error {
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		c, err := e.Repo.GetCatTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("cat %d: %w", id, err)
		}
		if c.Assigned() {
			return fmt.Errorf("%w: cannot delete cat %d with active mission %d", ErrConflict, id, *c.MissionID)
		}
		deleted, err := e.Repo.DeleteCat(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: cat %d gained a mission", ErrConflict, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	transition("cat", "deleted")
	e.log().Info("cat deleted", "cat_id", id)
	return nil
}
