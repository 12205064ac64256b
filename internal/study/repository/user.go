package repository

import (
	"context"

	"codehosp/internal/common/db"
	"codehosp/internal/study/model"
	appErr "codehosp/pkg/errors"
)

// UserRepository updates the account fields touched by verification
// and publication rewards.
type UserRepository struct {
	db db.Database
}

// NewUserRepository creates a new repository.
func NewUserRepository(database db.Database) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID loads one user.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	row := r.db.QueryRow(ctx,
		`SELECT id, username, points, studies, contributions FROM users WHERE id = ?`, id)

	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Points, &u.Studies, &u.Contributions); err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.UserNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query user failed")
	}
	return &u, nil
}

// AwardPoints adds contribution points and bumps the contribution
// counter. A non-nil tx joins an enclosing transaction.
func (r *UserRepository) AwardPoints(ctx context.Context, tx db.Transaction, userID int64, points int) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	if points < 0 {
		return appErr.ValidationError("points", "must not be negative")
	}
	q := db.GetQuerier(r.db, tx)
	res, err := q.Exec(ctx,
		`UPDATE users SET points = points + ?, contributions = contributions + 1 WHERE id = ?`,
		points, userID)
	if err != nil {
		return appErr.Wrapf(err, appErr.PointsUpdateFailed, "award points failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "read rows affected failed")
	}
	if affected == 0 {
		return appErr.New(appErr.UserNotFound)
	}
	return nil
}

// RecordPublication credits the publish bonus and bumps the study
// counter when a study goes live.
func (r *UserRepository) RecordPublication(ctx context.Context, tx db.Transaction, userID int64, bonus int) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	q := db.GetQuerier(r.db, tx)
	res, err := q.Exec(ctx,
		`UPDATE users SET points = points + ?, studies = studies + 1 WHERE id = ?`,
		bonus, userID)
	if err != nil {
		return appErr.Wrapf(err, appErr.PointsUpdateFailed, "record publication failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "read rows affected failed")
	}
	if affected == 0 {
		return appErr.New(appErr.UserNotFound)
	}
	return nil
}
