package migrate_test

import (
	"context"
	"testing"

	"spycats/internal/db"
	"spycats/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()

	if v, err := migrate.Current(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh db version = %d, %v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := migrate.MigrateContext(ctx, conn); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}
	latest, err := migrate.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	current, err := migrate.Current(ctx, conn)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current != latest || latest == 0 {
		t.Fatalf("current %d, latest %d", current, latest)
	}
	for _, table := range []string{"cats", "missions", "targets"} {
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestTargetsCascadeWithMission(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	res, err := conn.ExecContext(ctx, `INSERT INTO missions(complete) VALUES (0)`)
	if err != nil {
		t.Fatalf("insert mission: %v", err)
	}
	id, _ := res.LastInsertId()
	if _, err := conn.ExecContext(ctx, `INSERT INTO targets(mission_id,position,name,country) VALUES (?,0,'a','b')`, id); err != nil {
		t.Fatalf("insert target: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM missions WHERE id=?`, id); err != nil {
		t.Fatalf("delete mission: %v", err)
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM targets`).Scan(&n); err != nil {
		t.Fatalf("count targets: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected targets to cascade, %d left", n)
	}
}
