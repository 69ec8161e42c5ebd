package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/logger"
)

// SheetsBatchSize 单次 values.update 写入的行数
const SheetsBatchSize = 100

// 文档注释：Google Sheets 行数据源与写入端
// 约束：读取使用 values.get（按行主序）；写入先清空目标范围再分批覆盖，值按 RAW 原样写入。
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsFromCredentials 使用服务账号凭据文件
func NewSheetsFromCredentials(ctx context.Context, spreadsheetID, credentialsFile string) (*Sheets, error) {
	return NewSheets(ctx, spreadsheetID,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func NewSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Sheets, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *Sheets) FetchRange(ctx context.Context, rangeID string) ([]feature.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rangeID).Context(ctx).Do()
	if err != nil {
		return nil, Unavailable(rangeID, err)
	}
	rows := make([]feature.Row, 0, len(resp.Values))
	for _, vals := range resp.Values {
		if len(vals) == 0 {
			continue
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = fmt.Sprint(v)
		}
		rows = append(rows, ParseRow(cells))
	}
	logger.L().Debug("sheets_fetch_ok", "range", rangeID, "rows", len(rows))
	return rows, nil
}

func (s *Sheets) WriteRows(ctx context.Context, rangeID string, rows []feature.Row) error {
	sheet, start := SheetName(rangeID), startRow(rangeID)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rangeID, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rangeID, err)
	}
	for off := 0; off < len(rows); off += SheetsBatchSize {
		end := min(off+SheetsBatchSize, len(rows))
		values := make([][]interface{}, 0, end-off)
		for _, r := range rows[off:end] {
			cells := Cells(r)
			vals := make([]interface{}, len(cells))
			for i, c := range cells {
				vals[i] = c
			}
			values = append(values, vals)
		}
		target := fmt.Sprintf("%s!A%d", sheet, start+off)
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", target, err)
		}
		logger.L().Info("sheets_batch_ok", "range", target, "from", start+off, "to", start+end-1)
	}
	return nil
}

// startRow 解析范围起始单元格的行号（latest!A2:E 为 2），缺省为 1
func startRow(rangeID string) int {
	ref := rangeID
	if i := strings.IndexByte(ref, '!'); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimLeft(ref, "$ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	ref = strings.TrimPrefix(ref, "$")
	if n, err := strconv.Atoi(ref); err == nil && n > 0 {
		return n
	}
	return 1
}
