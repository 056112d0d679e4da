package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/storefront/pkg/auth"
)

// User はユーザーを表す。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Email はログインに使うメールアドレス。
	Email string
	// Name は表示名。
	Name string
	// PasswordHash はbcryptハッシュ。
	PasswordHash string
	// Roles は付与されたロール。
	Roles auth.RoleSet
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// NewUserParams はユーザー作成時の入力。
type NewUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Roles        auth.RoleSet
}

const userColumns = "id, email, name, password_hash, roles, created_at, updated_at"

// CreateUser はユーザーを作成する。メールアドレスが重複している場合はErrConflictを返す。
func (s *Store) CreateUser(ctx context.Context, p NewUserParams) (*User, error) {
	now := s.timestamp()
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, normalizeEmail(p.Email), p.Name, p.PasswordHash, p.Roles.String(), now, now)
	if err != nil {
		if isConstraintError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID はIDでユーザーを取得する。
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

// ListUsers は全ユーザーを作成日時順に返す。
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserName は表示名を更新する。
func (s *Store) UpdateUserName(ctx context.Context, id, name string) (*User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`, name, s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("表示名の更新に失敗: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// UpdateUserPassword はパスワードハッシュを更新する。
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("パスワードの更新に失敗: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// UpdateUserRoles はロールを置き換える。
func (s *Store) UpdateUserRoles(ctx context.Context, id string, roles auth.RoleSet) (*User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET roles = ?, updated_at = ? WHERE id = ?`, roles.String(), s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("ロールの更新に失敗: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser はユーザーを削除する。カートと注文も連鎖して削除される。
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser は1行をUserに変換する。
func scanUser(row rowScanner) (*User, error) {
	var (
		u                  User
		roles              string
		createdAt, updated string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &roles, &createdAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ユーザーの読み取りに失敗: %w", err)
	}

	var roleNames []string
	if roles != "" {
		roleNames = strings.Split(roles, ",")
	}
	u.Roles = auth.ParseRoleSet(roleNames)

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}
