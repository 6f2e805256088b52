package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumart/checkout/internal/domain/user"
)

const (
	getUserTypeSQL = `SELECT user_type FROM users WHERE id = $1`

	getStudentSchoolSQL = `SELECT school_id FROM students WHERE user_id = $1`

	getSchoolProfileSQL = `SELECT id, COALESCE(employee_id, '')
		FROM schools WHERE user_id = $1`

	getSESQL = `SELECT employee_id, name, role, redeem_points
		FROM se_employees WHERE employee_id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// RoleByID returns the stored account type of the user.
func (r *UserRepository) RoleByID(ctx context.Context, userID int64) (user.Role, error) {
	return userRole(ctx, r.pool, userID)
}

// Affiliation returns the school linkage for a student or school account.
func (r *UserRepository) Affiliation(ctx context.Context, userID int64, role user.Role) (user.Affiliation, error) {
	return affiliation(ctx, r.pool, userID, role)
}

func userRole(ctx context.Context, q querier, userID int64) (user.Role, error) {
	rows, err := q.Query(ctx, getUserTypeSQL, userID)
	if err != nil {
		return "", fmt.Errorf("getting user %d: %w", userID, err)
	}

	userType, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", user.ErrNotFound
		}
		return "", fmt.Errorf("getting user %d: %w", userID, err)
	}
	return user.Role(userType), nil
}

func affiliation(ctx context.Context, q querier, userID int64, role user.Role) (user.Affiliation, error) {
	aff := user.Affiliation{Role: role}

	switch role {
	case user.RoleStudent:
		rows, err := q.Query(ctx, getStudentSchoolSQL, userID)
		if err != nil {
			return aff, fmt.Errorf("getting student profile %d: %w", userID, err)
		}
		schoolID, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return aff, user.ErrNoAffiliation
			}
			return aff, fmt.Errorf("getting student profile %d: %w", userID, err)
		}
		aff.SchoolID = schoolID

	case user.RoleSchool:
		rows, err := q.Query(ctx, getSchoolProfileSQL, userID)
		if err != nil {
			return aff, fmt.Errorf("getting school profile %d: %w", userID, err)
		}
		profile, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (user.Affiliation, error) {
			var a user.Affiliation
			err := row.Scan(&a.SchoolID, &a.SEEmployeeID)
			return a, err
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return aff, user.ErrNoAffiliation
			}
			return aff, fmt.Errorf("getting school profile %d: %w", userID, err)
		}
		aff.SchoolID = profile.SchoolID
		aff.SEEmployeeID = profile.SEEmployeeID

	default:
		return aff, user.ErrNoAffiliation
	}

	return aff, nil
}

func seByID(ctx context.Context, q querier, employeeID string) (*user.SE, error) {
	rows, err := q.Query(ctx, getSESQL, employeeID)
	if err != nil {
		return nil, fmt.Errorf("getting SE %q: %w", employeeID, err)
	}

	se, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (user.SE, error) {
		var s user.SE
		err := row.Scan(&s.EmployeeID, &s.Name, &s.Role, &s.RedeemPoints)
		return s, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting SE %q: %w", employeeID, err)
	}
	return &se, nil
}
