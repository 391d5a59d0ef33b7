package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

const userColumns = `user_id, full_name, email, COALESCE(phone, ''), role, status, can_approve_requests, can_issue_returns, can_revoke_membership, created_at, updated_at`

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (full_name, email, phone, role, status, can_approve_requests, can_issue_returns, can_revoke_membership, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING user_id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query, u.FullName, u.Email, u.Phone, u.Role, u.Status, u.CanApproveRequests, u.CanIssueReturns, u.CanRevokeMembership, now, now).Scan(&u.ID)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET full_name=$1, email=$2, phone=$3, role=$4, status=$5, can_approve_requests=$6, can_issue_returns=$7, can_revoke_membership=$8, updated_at=$9 WHERE user_id=$10`
	res, err := r.db.ExecContext(ctx, query, u.FullName, u.Email, u.Phone, u.Role, u.Status, u.CanApproveRequests, u.CanIssueReturns, u.CanRevokeMembership, time.Now(), u.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, domain.ErrUserNotFound)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY full_name`
	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.Status, &u.CanApproveRequests, &u.CanIssueReturns, &u.CanRevokeMembership, &u.CreatedOn, &u.UpdatedOn); err != nil {
			return nil, mapError(err)
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err())
}

func (r *userRepository) scanOne(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.Status, &u.CanApproveRequests, &u.CanIssueReturns, &u.CanRevokeMembership, &u.CreatedOn, &u.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}
