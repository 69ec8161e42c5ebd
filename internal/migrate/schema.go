package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"smart-geo-api/internal/logger"
)

// 背景：SQL 行数据源首次运行自动建表；Postgres 与 SQLite 共用同一组语句
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；year 以原文存储，解析在读取侧完成
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _feature_rows (
            snapshot TEXT NOT NULL,
            seq INTEGER NOT NULL,
            id TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            geometry TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            year TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (snapshot, seq)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_feature_rows_snapshot_id ON _feature_rows(snapshot, id)`,
		`CREATE TABLE IF NOT EXISTS _feature_snapshots (
            snapshot TEXT PRIMARY KEY,
            row_count INTEGER NOT NULL DEFAULT 0,
            uploaded_at TEXT NOT NULL DEFAULT ''
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
