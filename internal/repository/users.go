package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"InventoryService/internal/model"
)

// ErrLoginTaken возвращается при попытке создать пользователя с занятым логином
var ErrLoginTaken = errors.New("login already taken")

// uniqueViolation — код ошибки Postgres для нарушения уникальности
const uniqueViolation = "23505"

// UserRepository реализует доступ к таблице users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser добавляет нового пользователя; уникальность логина обеспечивается
// ограничением в БД, нарушение транслируется в ErrLoginTaken
func (r *UserRepository) CreateUser(ctx context.Context, name, login, passwordHash string, role model.Role) (*model.User, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	query := `INSERT INTO users(name, login, password_hash, role) VALUES($1, $2, $3, $4)
		RETURNING id, created_at`
	var id int
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, query, name, login, passwordHash, role).Scan(&id, &createdAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &model.User{
		ID:           id,
		Name:         name,
		Login:        login,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    createdAt,
	}, nil
}

// GetUser возвращает пользователя по id
func (r *UserRepository) GetUser(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT id, name, login, password_hash, role, created_at FROM users WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUserByLogin возвращает пользователя по точному совпадению логина
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	query := `SELECT id, name, login, password_hash, role, created_at FROM users WHERE login=$1`
	row := r.db.QueryRowContext(ctx, query, login)
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return &u, nil
}

// DeleteUser удаляет пользователя с блокировкой и транзакцией;
// ссылки user_id в журнале движений обнуляются внешним ключом (журнал переживает автора)
func (r *UserRepository) DeleteUser(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// проверка существования с блокировкой
	row := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, id)
	var existingID int
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to select user for delete: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateRole изменяет роль пользователя с блокировкой и транзакцией
func (r *UserRepository) UpdateRole(ctx context.Context, id int, role model.Role) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// выборка с блокировкой
	selectQuery := `SELECT id, name, login, password_hash, role, created_at FROM users WHERE id=$1 FOR UPDATE`
	row := tx.QueryRowContext(ctx, selectQuery, id)
	var u model.User
	err = row.Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user for update: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.Role = role
	return &u, nil
}

// ListUsers возвращает всех пользователей в порядке создания
func (r *UserRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, login, password_hash, role, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users list: %w", err)
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}
