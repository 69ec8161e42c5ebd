// 数据上传工具：读取 Esri JSON 要素集，转换为 (id, name, geometry, category, year) 行并写入表格或数据库
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smart-geo-api/internal/config"
	"smart-geo-api/internal/ingest"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/source"
)

type uploadFlags struct {
	input    string
	rangeID  string
	sink     string
	sheetID  string
	creds    string
	sqlite   string
	mapping  ingest.Mapping
	dryRun   bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	f := uploadFlags{}

	cmd := &cobra.Command{
		Use:   "feature-upload",
		Short: "Upload an Esri JSON feature set as snapshot rows",
		Long: "Reads an Esri JSON feature set from a file or URL, converts each feature to a row\n" +
			"(id, name, geometry as GeoJSON, category, year) and replaces the target range.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpload(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "Esri JSON file path or http(s) URL")
	fl.StringVarP(&f.rangeID, "range", "r", envOr("CURRENT_RANGE", "latest!A2:E"), "Target range; the part before '!' names the snapshot")
	fl.StringVar(&f.sink, "sink", envOr("ROW_SOURCE", source.KindSheets), "Target backend: sheets, postgres or sqlite")
	fl.StringVar(&f.sheetID, "sheet-id", os.Getenv("SHEET_ID"), "Spreadsheet id (sheets backend)")
	fl.StringVar(&f.creds, "credentials", envOr("GOOGLE_CREDENTIALS_FILE", "credentials.json"), "Service account credentials file (sheets backend)")
	fl.StringVar(&f.sqlite, "sqlite-path", envOr("SQLITE_PATH", "data/features.db"), "SQLite database file (sqlite backend)")
	fl.StringVar(&f.mapping.ID, "id-field", "OBJECTID", "Attribute used as the row id")
	fl.StringVar(&f.mapping.Name, "name-field", "NAME", "Attribute used as the row name")
	fl.StringVar(&f.mapping.Category, "category-field", "", "Attribute used as the row category")
	fl.StringVar(&f.mapping.Year, "year-field", "", "Attribute used as the row year")
	fl.StringVar(&f.mapping.DefaultCategory, "category", "", "Category for features without a category attribute")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Convert and report without writing")
	fl.StringVar(&f.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runUpload(cmd *cobra.Command, f uploadFlags) error {
	l := logger.SetupWith(cmd.ErrOrStderr(), f.logLevel, os.Getenv("LOG_FORMAT"))
	ctx := cmd.Context()

	rc, err := ingest.Open(ctx, f.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer rc.Close()
	fs, err := ingest.ReadFeatureSet(rc)
	if err != nil {
		return err
	}
	for flag, name := range map[string]string{
		"id-field":       f.mapping.ID,
		"name-field":     f.mapping.Name,
		"category-field": f.mapping.Category,
		"year-field":     f.mapping.Year,
	} {
		if name != "" && !fs.HasField(name) {
			l.Warn("upload_field_missing", "flag", flag, "field", name)
		}
	}

	rows, st := fs.Rows(f.mapping)
	l.Info("upload_converted", "geometry_type", fs.GeometryType, "rows", st.Rows,
		"empty_geometry", st.EmptyGeometry, "generated_ids", st.GeneratedIDs)
	if f.dryRun {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "converted %d rows (%d without geometry), dry run\n", st.Rows, st.EmptyGeometry)
		return nil
	}

	sink, closeSink, err := source.Open(ctx, source.OpenOptions{
		Kind:            f.sink,
		SheetID:         f.sheetID,
		CredentialsFile: f.creds,
		SQLitePath:      f.sqlite,
	})
	if err != nil {
		return err
	}
	defer closeSink()

	if err := ingest.Upload(ctx, sink, f.rangeID, rows); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d rows to %s (%s)\n", len(rows), f.rangeID, f.sink)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	config.LoadDotEnv()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
