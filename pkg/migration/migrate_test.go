package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	// :memory: は接続ごとに別DBになるため1接続に固定する
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCollect(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順に並び、命名規則外のファイルは無視されること", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"m/000002_second.up.sql":  {Data: []byte("SELECT 1;")},
			"m/000001_first.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_first.down.sql": {Data: []byte("SELECT 1;")},
			"m/README.md":             {Data: []byte("docs")},
			"m/abc_invalid.up.sql":    {Data: []byte("SELECT 1;")},
			"m/nounderscore.up.sql":   {Data: []byte("SELECT 1;")},
		}

		got, err := Collect(fsys, "m")
		if err != nil {
			t.Fatalf("Collect()でエラーが発生: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("件数 = %d, want 2", len(got))
		}
		if got[0].Version != 1 || got[0].Name != "first" {
			t.Errorf("got[0] = %+v, want version=1 name=first", got[0])
		}
		if got[1].Version != 2 || got[1].Name != "second" {
			t.Errorf("got[1] = %+v, want version=2 name=second", got[1])
		}
	})

	t.Run("バージョンが重複している場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Collect(fsys, "m"); err == nil {
			t.Error("重複バージョンでエラーが返らなかった")
		}
	})
}

func TestMigrator_Up(t *testing.T) {
	t.Parallel()

	t.Run("未適用のマイグレーションのみ適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		ctx := context.Background()
		fsys := fstest.MapFS{
			"m/000001_create_items.up.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		}

		applied, err := New(db, fsys, "m", nil).Up(ctx)
		if err != nil {
			t.Fatalf("Up()でエラーが発生: %v", err)
		}
		if len(applied) != 1 {
			t.Fatalf("適用件数 = %d, want 1", len(applied))
		}

		// 2回目は何も適用されない
		fsys["m/000002_add_name.up.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE items ADD COLUMN name TEXT NOT NULL DEFAULT '';")}
		applied, err = New(db, fsys, "m", nil).Up(ctx)
		if err != nil {
			t.Fatalf("2回目のUp()でエラーが発生: %v", err)
		}
		if len(applied) != 1 || applied[0].Version != 2 {
			t.Fatalf("2回目の適用 = %+v, want version 2 のみ", applied)
		}

		pending, err := New(db, fsys, "m", nil).Pending(ctx)
		if err != nil {
			t.Fatalf("Pending()でエラーが発生: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("未適用件数 = %d, want 0", len(pending))
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO items (id, name) VALUES ('1', 'x')"); err != nil {
			t.Errorf("マイグレーション後のテーブルに挿入できない: %v", err)
		}
	})

	t.Run("SQLが失敗した場合はバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		ctx := context.Background()
		fsys := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE broken (;")},
		}

		if _, err := New(db, fsys, "m", nil).Up(ctx); err == nil {
			t.Fatal("不正なSQLでエラーが返らなかった")
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("schema_migrationsの参照に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("記録件数 = %d, want 0", count)
		}
	})
}
