package source

import (
	"context"
	"database/sql"
	"fmt"

	"smart-geo-api/internal/migrate"
	"smart-geo-api/internal/utils"
)

// 后端类型，与 ROW_SOURCE 取值一致
const (
	KindSheets   = "sheets"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
)

// Backend 同时支持读取与写入
type Backend interface {
	RowSource
	RowSink
}

// OpenOptions 打开后端所需参数；未用到的字段可留空
type OpenOptions struct {
	Kind            string
	SheetID         string
	CredentialsFile string
	SQLitePath      string
}

// 文档注释：按类型打开行数据后端
// 约束：关系库后端会确保表结构存在；返回的 close 始终非空。
func Open(ctx context.Context, opts OpenOptions) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch opts.Kind {
	case KindSheets:
		if opts.SheetID == "" {
			return nil, noop, fmt.Errorf("sheets backend requires a spreadsheet id")
		}
		s, err := NewSheetsFromCredentials(ctx, opts.SheetID, opts.CredentialsFile)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case KindPostgres:
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		return openSQL(ctx, db, utils.DriverPostgres)
	case KindSQLite:
		db, err := utils.OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite: %w", err)
		}
		return openSQL(ctx, db, utils.DriverSQLite)
	}
	return nil, noop, fmt.Errorf("unknown row source %q", opts.Kind)
}

func openSQL(ctx context.Context, db *sql.DB, driver string) (Backend, func() error, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, func() error { return nil }, fmt.Errorf("%s ping: %w", driver, err)
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, func() error { return nil }, err
	}
	return NewSQL(db, driver), db.Close, nil
}
