// 包 source：行数据源与写入端（Google Sheets、Postgres、SQLite）
package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"smart-geo-api/internal/feature"
)

// ErrSourceUnavailable：外部数据源读取失败，属于可重试的暂时性故障
var ErrSourceUnavailable = errors.New("row source unavailable")

// UnavailableError：携带失败的范围标识
type UnavailableError struct {
	Range string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("fetch range %q: %v", e.Range, e.Err)
}

// Unwrap 同时暴露 ErrSourceUnavailable 与底层错误
func (e *UnavailableError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// IsUnavailable 判断错误链中是否含数据源不可用
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// RowSource 按范围读取有序行；范围为 A1 记法（如 latest!A2:E）
type RowSource interface {
	FetchRange(ctx context.Context, rangeID string) ([]feature.Row, error)
}

// RowSink 整体替换某范围的行
type RowSink interface {
	WriteRows(ctx context.Context, rangeID string, rows []feature.Row) error
}

// 文档注释：按固定列序 (id, name, geometry, category, year) 解析一行
// 约束：缺失的尾部单元格视为空串；year 取前导整数（" 2021x" 为 2021），无法解析时 HasYear 为假。
func ParseRow(cells []string) feature.Row {
	cell := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	r := feature.Row{
		ID:       strings.TrimSpace(cell(0)),
		Name:     cell(1),
		Geometry: cell(2),
		Category: cell(3),
	}
	r.Year, r.HasYear = leadingInt(cell(4))
	return r
}

// Cells 为 ParseRow 的逆操作，year 缺失时输出空串
func Cells(r feature.Row) []string {
	year := ""
	if r.HasYear {
		year = strconv.Itoa(r.Year)
	}
	return []string{r.ID, r.Name, r.Geometry, r.Category, year}
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SheetName 取范围标识中 '!' 之前的部分
func SheetName(rangeID string) string {
	if i := strings.IndexByte(rangeID, '!'); i >= 0 {
		return strings.Trim(rangeID[:i], "'")
	}
	return strings.Trim(rangeID, "'")
}

// Unavailable 将读取错误包装为 *UnavailableError；nil 原样返回
func Unavailable(rangeID string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Range: rangeID, Err: err}
}
