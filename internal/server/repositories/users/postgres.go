package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `id, full_name, email, password_hash, role, is_active, is_deleted,
		 is_system_protected, tokens_valid_after, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, full_name, email, password_hash, role, is_active, is_system_protected)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FullName, user.Email, user.PasswordHash, string(user.Role),
		user.IsActive, user.IsSystemProtected).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.getOne(ctx, query, strings.TrimSpace(email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var validAfter sql.NullTime
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &role,
		&user.IsActive, &user.IsDeleted, &user.IsSystemProtected, &validAfter, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if validAfter.Valid {
		t := validAfter.Time
		user.TokensValidAfter = &t
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.update(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
}

func (r *PostgresRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	return r.update(ctx, `UPDATE users SET is_deleted = $2 WHERE id = $1`, id, deleted)
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.update(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
}

func (r *PostgresRepository) SetTokensValidAfter(ctx context.Context, id string, t time.Time) error {
	return r.update(ctx, `UPDATE users SET tokens_valid_after = $2 WHERE id = $1`, id, t)
}

// update runs a single-row UPDATE and maps zero affected rows to ErrorNotFound.
func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchByEmail matches fragment literally anywhere in the email.
func (r *PostgresRepository) SearchByEmail(ctx context.Context, fragment string, limit int) ([]*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE email ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, likeEscaper.Replace(fragment), limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) AnyAdmin(ctx context.Context) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1 AND NOT is_deleted)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, string(models.RoleAdmin)).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
