// 包 utils：数据库、Redis 与 TLS 的连接/初始化工具
package utils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// 驱动名，与 database/sql 注册名一致
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// BuildPostgresDSNFromEnv：由 PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 拼接 DSN
func BuildPostgresDSNFromEnv() string {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := envOr("PG_DB", "smartgeo")
	ssl := envOr("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：连接池上限可由 PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 调整
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 10))
	return db, nil
}

// 文档注释：打开 SQLite 文件库
// 约束：父目录不存在时创建；":memory:" 直接打开内存库；单连接避免写锁竞争。
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := sql.Open(DriverSQLite, path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
