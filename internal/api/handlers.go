// 包 api：FeatureServer 兼容的 HTTP 接口
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/interpret"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/metrics"
	"smart-geo-api/internal/query"
	"smart-geo-api/internal/source"
)

const (
	maxRecordCount = 1000
	maxBodyBytes   = 1 << 20
)

// Querier 查询编排能力，由 query.Engine 实现
type Querier interface {
	Features(ctx context.Context) ([]feature.Feature, error)
	Query(ctx context.Context, req query.Request) (*query.Result, error)
	Changes(ctx context.Context) ([]feature.Feature, error)
}

// Handler 持有各路由共享的依赖
type Handler struct {
	engine    Querier
	interp    interpret.Interpreter
	layerName string
}

func NewHandler(engine Querier, interp interpret.Interpreter, layerName string) *Handler {
	if layerName == "" {
		layerName = "Simulated Parcels"
	}
	return &Handler{engine: engine, interp: interp, layerName: layerName}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var b errorBody
	b.Error.Code = status
	b.Error.Message = msg
	writeJSON(w, status, b, false)
}

// failed 按错误类别映射状态码；客户端已断开时不再写响应
func failed(w http.ResponseWriter, r *http.Request, op string, err error) {
	l := logger.L()
	switch {
	case errors.Is(err, context.Canceled):
		l.Debug("request_canceled", "op", op, "path", r.URL.Path)
	case source.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
		l.Warn("request_source_unavailable", "op", op, "err", err)
		writeError(w, http.StatusServiceUnavailable, "Feature source unavailable")
	default:
		l.Error("request_fail", "op", op, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// Service GET /FeatureServer
func (h *Handler) Service(w http.ResponseWriter, r *http.Request) {
	info := serviceInfo{
		CurrentVersion:        10.91,
		ServiceDescription:    "Feature service over tabular parcel snapshots",
		MaxRecordCount:        maxRecordCount,
		SupportedQueryFormats: "JSON,geoJSON",
		Capabilities:          "Query",
		Description:           h.layerName,
		SpatialReference:      webMercator,
		InitialExtent:         worldExtent,
		FullExtent:            worldExtent,
		Layers: []layerRef{{
			ID: 0, Name: h.layerName, ParentLayerID: -1, DefaultVisibility: true,
		}},
		Tables: []any{},
	}
	writeJSON(w, http.StatusOK, info, isPretty(r))
}

// Layer GET /FeatureServer/0
// 范围取投影后要素的包围盒；数据源不可用时退回全图范围，元数据接口不因此失败
func (h *Handler) Layer(w http.ResponseWriter, r *http.Request) {
	ext := worldExtent
	if fs, err := h.engine.Features(r.Context()); err != nil {
		logger.L().Warn("layer_extent_fallback", "err", err)
	} else {
		ext = featureExtent(fs)
	}
	info := layerInfo{
		ID:               0,
		Type:             "Feature Layer",
		Name:             h.layerName,
		GeometryType:     "esriGeometryPolygon",
		ObjectIDField:    "oid",
		SupportsQuery:    true,
		Capabilities:     "Query",
		MaxRecordCount:   maxRecordCount,
		Fields:           layerFields,
		DrawingInfo:      newDrawingInfo(),
		Extent:           ext,
		SpatialReference: webMercator,
	}
	writeJSON(w, http.StatusOK, info, isPretty(r))
}

func isPretty(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("f"), "pjson")
}

// Query GET|POST /FeatureServer/0/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("query").Inc()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	format := strings.ToLower(r.Form.Get("f"))
	switch format {
	case "", "json", "pjson", "geojson":
	default:
		writeError(w, http.StatusBadRequest, "Unsupported format: "+format)
		return
	}
	countOnly, err := formBool(r.Form.Get("returnCountOnly"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid returnCountOnly")
		return
	}
	withGeometry, err := formBool(r.Form.Get("returnGeometry"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid returnGeometry")
		return
	}

	outFields := r.Form.Get("outFields")
	res, err := h.engine.Query(r.Context(), query.Request{
		Where:     r.Form.Get("where"),
		OutFields: strings.Split(outFields, ","),
	})
	if err != nil {
		failed(w, r, "query", err)
		return
	}
	if countOnly {
		writeJSON(w, http.StatusOK, countResponse{Count: len(res.Features)}, format == "pjson")
		return
	}
	fields := outFieldSet(outFields)
	if format == "geojson" {
		fc, err := toGeoJSON(res.Features, fields)
		if err != nil {
			failed(w, r, "query", err)
			return
		}
		writeJSON(w, http.StatusOK, fc, false)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		ObjectIDFieldName: "oid",
		GeometryType:      "esriGeometryPolygon",
		SpatialReference:  webMercator,
		Fields:            layerFields,
		Features:          toEsriFeatures(res.Features, fields, withGeometry),
	}, format == "pjson")
}

func formBool(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

type interpretRequest struct {
	Query string `json:"query"`
}

type interpretResponse struct {
	Interpreted string `json:"interpreted"`
}

// readQuery 读取 {query}；缺失或为空时已写出 400
func readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req interpretRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Missing query")
		return "", false
	}
	return req.Query, true
}

func (h *Handler) interpret(w http.ResponseWriter, r *http.Request, text string) (string, bool) {
	where, err := h.interp.Interpret(r.Context(), text)
	switch {
	case err == nil:
		return where, true
	case errors.Is(err, interpret.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Missing query")
	case errors.Is(err, context.Canceled):
		logger.L().Debug("request_canceled", "op", "interpret", "path", r.URL.Path)
	default:
		logger.L().Error("interpret_fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Interpretation failed")
	}
	return "", false
}

// Interpret POST /FeatureServer/0/interpret
func (h *Handler) Interpret(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("interpret").Inc()
	text, ok := readQuery(w, r)
	if !ok {
		return
	}
	where, ok := h.interpret(w, r, text)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, interpretResponse{Interpreted: where}, false)
}

// SmartQuery POST /smart-query：先解释再查询，返回 GeoJSON
func (h *Handler) SmartQuery(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("smart_query").Inc()
	text, ok := readQuery(w, r)
	if !ok {
		return
	}
	where, ok := h.interpret(w, r, text)
	if !ok {
		return
	}
	res, err := h.engine.Query(r.Context(), query.Request{Where: where})
	if err != nil {
		failed(w, r, "smart_query", err)
		return
	}
	fc, err := toGeoJSON(res.Features, nil)
	if err != nil {
		failed(w, r, "smart_query", err)
		return
	}
	fc.Where = where
	writeJSON(w, http.StatusOK, fc, false)
}

// Features GET /features
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("features").Inc()
	fs, err := h.engine.Features(r.Context())
	if err != nil {
		failed(w, r, "features", err)
		return
	}
	h.writeCollection(w, r, "features", fs)
}

// DetectChanges GET /detect-changes
func (h *Handler) DetectChanges(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("detect_changes").Inc()
	fs, err := h.engine.Changes(r.Context())
	if err != nil {
		failed(w, r, "detect_changes", err)
		return
	}
	h.writeCollection(w, r, "detect_changes", fs)
}

func (h *Handler) writeCollection(w http.ResponseWriter, r *http.Request, op string, fs []feature.Feature) {
	fc, err := toGeoJSON(fs, nil)
	if err != nil {
		failed(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, fc, false)
}
