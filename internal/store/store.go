// Package store はSQLiteを使った永続化層を提供する。
//
// ユーザー、商品、カート、注文、監査イベントを扱う。
// スキーマはmigrationsディレクトリのSQLで管理し、起動時に適用する。
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/storefront/pkg/migration"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// 永続化層が返すエラー。
var (
	// ErrNotFound は対象の行が存在しないことを表す。
	ErrNotFound = errors.New("対象が見つかりません")
	// ErrConflict は一意制約に違反したことを表す。
	ErrConflict = errors.New("既に存在します")
	// ErrEmptyCart はカートが空のまま注文しようとしたことを表す。
	ErrEmptyCart = errors.New("カートが空です")
	// ErrInsufficientStock は在庫が不足していることを表す。
	ErrInsufficientStock = errors.New("在庫が不足しています")
)

// timeLayout は日時の保存形式。辞書順と時系列順が一致するよう固定長にする。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store はSQLiteデータベースへのアクセスを提供する。
// *sql.DBはゴルーチンセーフなため、Storeも同時に利用できる。
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Open はSQLiteデータベースに接続する。
// pathに":memory:"を指定した場合は接続を1本に固定する（接続ごとに別DBになるため）。
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	memory := path == ":memory:"
	// 書き込むトランザクションは読み取りから始まるため、開始時に書き込みロックを取る。
	// DEFERREDのままだと昇格時のSQLITE_BUSYはbusy_timeoutで待機されない。
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	return &Store{db: db, now: time.Now, logger: logger}, nil
}

// Migrate は未適用のマイグレーションを適用し、適用件数を返す。
func (s *Store) Migrate(ctx context.Context) (int, error) {
	applied, err := migration.New(s.db, migrationsFS, "migrations", s.logger).Up(ctx)
	if err != nil {
		return len(applied), fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return len(applied), nil
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx はトランザクション内でfnを実行する。fnがエラーを返した場合はロールバックする。
// トランザクションはBEGIN IMMEDIATEで開始される（Openの_txlock）。
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// timestamp は現在時刻を保存形式で返す。
func (s *Store) timestamp() string {
	return formatTime(s.now())
}

// formatTime は日時を保存形式に変換する。
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime は保存形式の日時を解析する。
func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("日時の解析に失敗: %q: %w", v, err)
	}
	return t, nil
}

// isConstraintError はSQLiteの制約違反エラーかを判定する。
func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// rowsAffectedOrNotFound は更新・削除の影響行数が0の場合にErrNotFoundを返す。
func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeEmail はメールアドレスを比較用に正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
