package db

import (
	"context"

	"gorm.io/gorm"
)

// Step is one write executed inside a unit of work.
type Step func(tx *gorm.DB) error

// UnitOfWork collects writes that must commit or roll back together.
type UnitOfWork struct {
	steps []Step
}

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

func (u *UnitOfWork) Add(step Step) *UnitOfWork {
	if step != nil {
		u.steps = append(u.steps, step)
	}
	return u
}

func (u *UnitOfWork) Len() int {
	return len(u.steps)
}

// Commit runs every step in order in one transaction. The first error aborts.
func (u *UnitOfWork) Commit(ctx context.Context, conn *gorm.DB) error {
	if len(u.steps) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range u.steps {
			if err := step(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
