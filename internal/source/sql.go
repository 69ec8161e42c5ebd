package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/utils"
)

// 每个事务提交的最大行数
const sqlCommitEvery = 5000

// 文档注释：关系库行数据源与写入端（表 _feature_rows）
// 背景：范围标识中 '!' 之前的部分命名快照（latest!A2:E 对应快照 latest），行按 seq 排序。
// 约束：driver 决定占位符风格，postgres 使用 $n，sqlite3 使用 ?。
type SQL struct {
	db     *sql.DB
	driver string
}

func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

// ph 返回第 n 个占位符（从 1 开始）
func (s *SQL) ph(n int) string {
	if s.driver == utils.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQL) FetchRange(ctx context.Context, rangeID string) ([]feature.Row, error) {
	q := `SELECT id, name, geometry, category, year FROM _feature_rows WHERE snapshot = ` + s.ph(1) + ` ORDER BY seq`
	rs, err := s.db.QueryContext(ctx, q, SheetName(rangeID))
	if err != nil {
		return nil, Unavailable(rangeID, err)
	}
	defer rs.Close()
	var rows []feature.Row
	for rs.Next() {
		cells := make([]string, 5)
		if err := rs.Scan(&cells[0], &cells[1], &cells[2], &cells[3], &cells[4]); err != nil {
			return nil, Unavailable(rangeID, err)
		}
		rows = append(rows, ParseRow(cells))
	}
	if err := rs.Err(); err != nil {
		return nil, Unavailable(rangeID, err)
	}
	logger.L().Debug("sql_fetch_ok", "snapshot", SheetName(rangeID), "rows", len(rows))
	return rows, nil
}

// 文档注释：替换快照内全部行
// 约束：删除与首批插入在同一事务；此后每 sqlCommitEvery 行提交一次，中途失败时快照可能只含部分行。
func (s *SQL) WriteRows(ctx context.Context, rangeID string, rows []feature.Row) error {
	snap := SheetName(rangeID)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM _feature_rows WHERE snapshot = `+s.ph(1), snap); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear snapshot %s: %w", snap, err)
	}
	ins := fmt.Sprintf(`INSERT INTO _feature_rows(snapshot, seq, id, name, geometry, category, year) VALUES (%s)`,
		strings.Join([]string{s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7)}, ", "))
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for i, r := range rows {
		c := Cells(r)
		if _, err := stmt.ExecContext(ctx, snap, i+1, c[0], c[1], c[2], c[3], c[4]); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
		if (i+1)%sqlCommitEvery == 0 && i+1 < len(rows) {
			_ = stmt.Close()
			if err := tx.Commit(); err != nil {
				return err
			}
			logger.L().Info("sql_batch_commit", "snapshot", snap, "rows", i+1)
			if tx, err = s.db.BeginTx(ctx, nil); err != nil {
				return err
			}
			if stmt, err = tx.PrepareContext(ctx, ins); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	_ = stmt.Close()

	var upsert string
	if s.driver == utils.DriverPostgres {
		upsert = `INSERT INTO _feature_snapshots(snapshot, row_count, uploaded_at) VALUES ($1, $2, $3)
            ON CONFLICT (snapshot) DO UPDATE SET row_count = EXCLUDED.row_count, uploaded_at = EXCLUDED.uploaded_at`
	} else {
		upsert = `INSERT OR REPLACE INTO _feature_snapshots(snapshot, row_count, uploaded_at) VALUES (?, ?, ?)`
	}
	if _, err := tx.ExecContext(ctx, upsert, snap, len(rows), time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record snapshot %s: %w", snap, err)
	}
	return tx.Commit()
}
