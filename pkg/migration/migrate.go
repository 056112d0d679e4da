// Package migration はSQLiteデータベースのマイグレーションを管理する。
// fs.FSからSQLファイルを読み込み、schema_migrationsテーブルで適用状態を追跡する。
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

// upSuffix は適用対象となるファイルの拡張子。
const upSuffix = ".up.sql"

// Migration は1つのマイグレーションファイルを表す。
// ファイル名形式: 000001_description.up.sql
type Migration struct {
	// Version はファイル名先頭の番号。
	Version int
	// Name はファイル名の説明部分。
	Name string
	// path はfs.FS内のパス。
	path string
}

// Migrator はマイグレーションの適用を行う。
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger *slog.Logger
}

// New は新しいMigratorを生成する。loggerがnilの場合はslogのデフォルトロガーを使う。
func New(db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, fsys: fsys, dir: dir, logger: logger}
}

// Up は未適用のマイグレーションをバージョン順に適用し、適用したものを返す。
// 各マイグレーションは個別のトランザクションで適用される。
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	applied := make([]Migration, 0, len(pending))
	for _, mg := range pending {
		if err := m.apply(ctx, mg); err != nil {
			return applied, fmt.Errorf("マイグレーション %06d の適用に失敗: %w", mg.Version, err)
		}
		m.logger.InfoContext(ctx, "マイグレーションを適用しました", "version", mg.Version, "name", mg.Name)
		applied = append(applied, mg)
	}
	return applied, nil
}

// Pending は未適用のマイグレーションをバージョン順に返す。
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	done, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	all, err := Collect(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	var pending []Migration
	for _, mg := range all {
		if !done[mg.Version] {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

// Collect はディレクトリから.up.sqlファイルを収集してバージョン順に並べる。
// 命名規則に合わないファイルは無視し、同じバージョンが重複している場合はエラーにする。
func Collect(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), upSuffix) {
			continue
		}

		prefix, rest, found := strings.Cut(entry.Name(), "_")
		if !found {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("バージョン %06d が重複しています: %s, %s", version, other, entry.Name())
		}
		seen[version] = entry.Name()

		out = append(out, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, upSuffix),
			path:    path.Join(dir, entry.Name()),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ensureTable はバージョン管理テーブルを作成する。
func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// appliedVersions は適用済みのバージョンを取得する。
func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// apply は1つのマイグレーションをトランザクション内で適用する。
func (m *Migrator) apply(ctx context.Context, mg Migration) error {
	content, err := fs.ReadFile(m.fsys, mg.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mg.Version, mg.Name); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
