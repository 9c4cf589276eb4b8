package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// UserRepository handles user accounts
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `
	id, name, email, password_hash, role, assigned_area_id, assigned_area_name,
	assigned_department_id, points, active, created_at, updated_at
`

// Create inserts a new user. Duplicate emails return ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, u *models.User) error {
	query := `
		INSERT INTO users (
			id, name, email, password_hash, role, assigned_area_id, assigned_area_name,
			assigned_department_id, points, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := pick(tx, r.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
		u.AssignedAreaID, u.AssignedAreaName, u.AssignedDepartmentID,
		u.Points, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUserFrom(pick(tx, r.db).QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUserFrom(r.db.QueryRowContext(ctx, query, email))
}

// DepartmentActive reports whether the department id is valid, meaning
// at least one active department admin is assigned to it.
func (r *UserRepository) DepartmentActive(ctx context.Context, departmentID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE assigned_department_id = ? AND role = ? AND active = 1
	`, departmentID, models.RoleDepartmentAdmin).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check department: %w", err)
	}
	return count > 0, nil
}

// AddPoints adds to a user's gamification point total
func (r *UserRepository) AddPoints(ctx context.Context, tx *sql.Tx, userID string, points int64) error {
	result, err := pick(tx, r.db).ExecContext(ctx,
		"UPDATE users SET points = points + ? WHERE id = ?", points, userID)
	if err != nil {
		return fmt.Errorf("failed to add points: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUserFrom(s rowScanner) (*models.User, error) {
	var u models.User
	err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.AssignedAreaID, &u.AssignedAreaName, &u.AssignedDepartmentID,
		&u.Points, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}
