package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"tradepulse/internal/analytics"
	"tradepulse/internal/config"
	"tradepulse/internal/dataset"
	apperrors "tradepulse/internal/errors"
	"tradepulse/internal/fetch"
	"tradepulse/internal/infrastructure"
)

// loadedDataset is one immutable generation of the dataset. The table behind
// it is never mutated after install; filters and derivations work on copies.
type loadedDataset struct {
	id       string
	source   string
	table    *dataset.Table
	loadedAt time.Time
}

// PipelineService is the orchestration layer: it owns the current dataset,
// runs filter/aggregate/derive requests against it and memoizes derivation
// results per dataset generation.
type PipelineService struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *infrastructure.Metrics
	fetcher  *fetch.Client
	sheets   *fetch.SheetsReader
	validate *validator.Validate
	cache    *lru.Cache[string, *DeriveResult]

	mu      sync.RWMutex
	current *loadedDataset
}

// NewPipelineService creates the pipeline service with its fetch client and
// derivation cache.
func NewPipelineService(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.Metrics) (*PipelineService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cacheSize := cfg.Pipeline.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, *DeriveResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create derivation cache: %w", err)
	}

	fetcher := fetch.NewClient(fetch.Options{
		Timeout: cfg.Pipeline.FetchTimeout,
		Retries: cfg.Pipeline.FetchRetries,
	}, logger)

	var sheetsReader *fetch.SheetsReader
	if path := cfg.Pipeline.SheetsCredentialsFile; path != "" {
		creds, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials: %w", err)
		}
		sheetsReader, err = fetch.NewSheetsReader(context.Background(), creds, logger)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("PipelineService initialized",
		slog.String("quantity_column", cfg.Pipeline.QuantityColumn),
		slog.Bool("sheets_api", sheetsReader != nil),
		slog.Int("cache_size", cacheSize))

	return &PipelineService{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "pipeline_service")),
		metrics:  metrics,
		fetcher:  fetcher,
		sheets:   sheetsReader,
		validate: validator.New(),
		cache:    cache,
	}, nil
}

// LoadUpload ingests an uploaded file. The extension picks the parser:
// spreadsheet workbooks go through the sheet reader, everything else is
// treated as CSV.
func (s *PipelineService) LoadUpload(ctx context.Context, r io.Reader, filename string) (DatasetInfo, error) {
	var (
		table *dataset.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		table, err = dataset.ParseWorkbook(r, s.cfg.Pipeline.DefaultSheetName)
	default:
		table, err = dataset.ParseCSV(r)
	}
	if err != nil {
		return DatasetInfo{}, err
	}

	return s.install(ctx, table, "upload:"+filename, "upload")
}

// LoadRemote ingests a remote spreadsheet. Google Sheet links go through the
// Sheets API when service-account credentials are configured (covering sheets
// that are not published for export); otherwise the share link is rewritten
// to its CSV export form and fetched over plain HTTP.
func (s *PipelineService) LoadRemote(ctx context.Context, rawURL, sheetName string) (DatasetInfo, error) {
	if sheetName == "" {
		sheetName = s.cfg.Pipeline.DefaultSheetName
	}

	if s.sheets != nil {
		if id, ok := fetch.SpreadsheetID(rawURL); ok {
			return s.LoadSheets(ctx, id, sheetName)
		}
	}

	csvURL, err := fetch.SheetCSVURL(rawURL, sheetName)
	if err != nil {
		return DatasetInfo{}, err
	}

	table, err := s.fetcher.FetchCSV(ctx, csvURL)
	if err != nil {
		return DatasetInfo{}, err
	}

	return s.install(ctx, table, rawURL, "remote")
}

// LoadSheets ingests one sheet by spreadsheet ID through the Sheets API.
func (s *PipelineService) LoadSheets(ctx context.Context, spreadsheetID, sheetName string) (DatasetInfo, error) {
	if s.sheets == nil {
		return DatasetInfo{}, apperrors.ErrValidation("spreadsheet_id",
			"sheets API access is not configured; set the sheets credentials file")
	}
	if sheetName == "" {
		sheetName = s.cfg.Pipeline.DefaultSheetName
	}
	table, err := s.sheets.ReadTable(ctx, spreadsheetID, sheetName)
	if err != nil {
		return DatasetInfo{}, err
	}
	return s.install(ctx, table, "sheets:"+spreadsheetID, "sheets")
}

// install normalizes the parsed table and swaps it in as the new current
// dataset. The previous generation's cached derivations become unreachable
// because cache keys carry the generation ID.
func (s *PipelineService) install(ctx context.Context, table *dataset.Table, source, sourceKind string) (DatasetInfo, error) {
	normalized := dataset.Normalize(ctx, table, s.cfg.Pipeline.QuantityColumn, s.logger)

	ds := &loadedDataset{
		id:       uuid.New().String(),
		source:   source,
		table:    normalized,
		loadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DatasetLoads.WithLabelValues(sourceKind).Inc()
		s.metrics.DatasetRowCount.Set(float64(normalized.Len()))
	}

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset_id", ds.id),
		slog.String("source", source),
		slog.Int("rows", normalized.Len()),
		slog.Bool("periodless", normalized.Periodless()))

	return s.infoOf(ds), nil
}

// Reset drops the current dataset and every cached derivation.
func (s *PipelineService) Reset(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.cache.Purge()
	if s.metrics != nil {
		s.metrics.DatasetRowCount.Set(0)
	}
	s.logger.InfoContext(ctx, "dataset reset")
}

// Info describes the current dataset.
func (s *PipelineService) Info() (DatasetInfo, error) {
	ds, err := s.snapshot()
	if err != nil {
		return DatasetInfo{}, err
	}
	return s.infoOf(ds), nil
}

func (s *PipelineService) infoOf(ds *loadedDataset) DatasetInfo {
	return DatasetInfo{
		ID:         ds.id,
		Source:     ds.source,
		Rows:       ds.table.Len(),
		Columns:    ds.table.Columns(),
		Periodless: ds.table.Periodless(),
		LoadedAt:   ds.loadedAt.Format(time.RFC3339),
	}
}

// Preview returns the first n rows of the current dataset.
func (s *PipelineService) Preview(n int) (*dataset.Table, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > ds.table.Len() {
		n = ds.table.Len()
	}

	out := dataset.NewTable(ds.table.Columns())
	for i := 0; i < n; i++ {
		if err := out.AppendRow(ds.table.Row(i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Options lists the distinct filter values of the current dataset. Months
// come back in calendar order, everything else sorted.
func (s *PipelineService) Options() (FilterOptions, error) {
	ds, err := s.snapshot()
	if err != nil {
		return FilterOptions{}, err
	}

	distinct := func(col string) []string {
		vals := ds.table.DistinctValues(col)
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			out = append(out, v.String())
		}
		return out
	}

	months := dataset.SortMonthValues(ds.table.DistinctValues(dataset.ColMonth))
	monthLabels := make([]string, 0, len(months))
	for _, m := range months {
		monthLabels = append(monthLabels, m.String())
	}

	return FilterOptions{
		Reporters: distinct(dataset.ColReporter),
		Partners:  distinct(dataset.ColPartner),
		Flows:     distinct(dataset.ColFlow),
		Years:     distinct(dataset.ColYear),
		Months:    monthLabels,
	}, nil
}

// Table returns the filtered current dataset for preview or export.
func (s *PipelineService) Table(filters dataset.Selection) (*dataset.Table, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return dataset.Filter(ds.table, filters), nil
}

// Aggregate runs a grouped reduction over the filtered dataset.
func (s *PipelineService) Aggregate(ctx context.Context, req AggregateRequest) (*dataset.AggregateResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	filtered := dataset.Filter(ds.table, req.Filters)
	return dataset.Aggregate(filtered, req.GroupBy, s.cfg.Pipeline.QuantityColumn, req.Reduce)
}

// Pivot runs a two-key matrix reduction over the filtered dataset.
func (s *PipelineService) Pivot(ctx context.Context, req PivotRequest) (*dataset.Pivot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	filtered := dataset.Filter(ds.table, req.Filters)
	return dataset.PivotTable(filtered, req.RowColumn, req.ColColumn, s.cfg.Pipeline.QuantityColumn, req.Reduce)
}

// Derive runs one analytics derivation over the filtered dataset. Results
// are memoized per (dataset generation, request) pair; identical requests on
// an unchanged dataset never recompute.
func (s *PipelineService) Derive(ctx context.Context, req DeriveRequest) (*DeriveResult, error) {
	req = req.withDefaults(s.cfg.Pipeline.ForecastWindow)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	key, err := cacheKey(ds.id, req)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		s.logger.DebugContext(ctx, "derivation served from cache",
			slog.String("kind", string(req.Kind)))
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	start := time.Now()
	result, err := s.run(ctx, ds, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PipelineErrors.WithLabelValues(errorClass(err)).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PipelineRuns.WithLabelValues(string(req.Kind)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "derivation complete",
		slog.String("kind", string(req.Kind)),
		slog.Duration("duration", time.Since(start)))

	s.cache.Add(key, result)
	return result, nil
}

// run dispatches on the derivation kind. The filtered table is built once
// here; each branch decides whether it needs the period axis.
func (s *PipelineService) run(ctx context.Context, ds *loadedDataset, req DeriveRequest) (*DeriveResult, error) {
	filtered := dataset.Filter(ds.table, req.Filters)
	qty := s.cfg.Pipeline.QuantityColumn

	wrap := func(v interface{}) *DeriveResult {
		return &DeriveResult{Kind: req.Kind, Result: v}
	}

	switch req.Kind {
	case analytics.KindRollingForecast:
		series, err := s.periodSeries(filtered, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.RollingForecast(series, req.Window)
		return wrap(r), nil

	case analytics.KindThresholdAlerts:
		pivot, err := s.categoryPivot(filtered, req.Category, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.ThresholdAlerts(pivot, req.Threshold)
		return wrap(r), nil

	case analytics.KindOutliers:
		pivot, err := s.categoryPivot(filtered, req.Category, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.DetectOutliers(pivot, req.Contamination, req.Seed)
		return wrap(r), nil

	case analytics.KindComparison:
		pivot, err := s.categoryPivot(filtered, req.Category, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.Compare(pivot, req.Threshold, req.Contamination, req.Seed)
		return wrap(r), nil

	case analytics.KindClusters:
		agg, err := dataset.Aggregate(filtered, []string{req.Category}, qty, dataset.ReduceSum)
		if err != nil {
			return nil, err
		}
		values := make(map[string]float64, len(agg.Groups))
		for _, g := range agg.Groups {
			if g.Count == 0 {
				continue
			}
			values[g.Keys[0].String()] = g.Value
		}
		r := analytics.Cluster(values, req.Clusters)
		return wrap(r), nil

	case analytics.KindDecomposition:
		series, err := s.periodSeries(filtered, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.Decompose(series, req.Cycle, req.Model)
		return wrap(r), nil

	case analytics.KindExtrapolation:
		series, err := s.periodSeries(filtered, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.Extrapolate(series, req.Horizon, req.Method)
		return wrap(r), nil

	case analytics.KindKPI:
		series, err := s.periodSeries(filtered, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.KPIs(series)
		return wrap(r), nil

	case analytics.KindCorrelation:
		r := analytics.Correlation(filtered)
		return wrap(r), nil

	case analytics.KindScenario:
		series, err := s.periodSeries(filtered, qty)
		if err != nil {
			return nil, err
		}
		r := analytics.Scenario(series, req.GrowthFactor)
		return wrap(r), nil

	case analytics.KindCalendar:
		pivot, err := s.calendarPivot(filtered, qty)
		if err != nil {
			return nil, err
		}
		return wrap(pivot), nil

	default:
		return nil, apperrors.ErrValidation("kind", fmt.Sprintf("unknown derivation kind %q", req.Kind))
	}
}

// periodSeries reduces the quantity column to one sum per period, in
// chronological order.
func (s *PipelineService) periodSeries(t *dataset.Table, qty string) (analytics.Series, error) {
	if err := t.RequirePeriod(); err != nil {
		return nil, err
	}
	agg, err := dataset.Aggregate(t, []string{dataset.ColPeriod}, qty, dataset.ReduceSum)
	if err != nil {
		return nil, err
	}

	series := make(analytics.Series, 0, len(agg.Groups))
	for _, g := range agg.Groups {
		if g.Count == 0 {
			continue
		}
		series = append(series, analytics.Point{Period: g.Keys[0].Period, Value: g.Value})
	}
	return series, nil
}

// categoryPivot builds the category x period sum matrix the change-based
// derivations work on.
func (s *PipelineService) categoryPivot(t *dataset.Table, category, qty string) (*dataset.Pivot, error) {
	if err := t.RequirePeriod(); err != nil {
		return nil, err
	}
	return dataset.PivotTable(t, category, dataset.ColPeriod, qty, dataset.ReduceSum)
}

// calendarPivot builds the year x month sum matrix with months in calendar
// order rather than the pivot's default lexical order.
func (s *PipelineService) calendarPivot(t *dataset.Table, qty string) (*dataset.Pivot, error) {
	pivot, err := dataset.PivotTable(t, dataset.ColYear, dataset.ColMonth, qty, dataset.ReduceSum)
	if err != nil {
		return nil, err
	}

	ordered := dataset.SortMonthValues(pivot.ColKeys)
	colIdx := make(map[string]int, len(pivot.ColKeys))
	for i, ck := range pivot.ColKeys {
		colIdx[ck.String()] = i
	}

	cells := make([][]float64, len(pivot.RowKeys))
	for i := range pivot.Cells {
		cells[i] = make([]float64, len(ordered))
		for j, ck := range ordered {
			cells[i][j] = pivot.Cells[i][colIdx[ck.String()]]
		}
	}
	pivot.ColKeys = ordered
	pivot.Cells = cells
	return pivot, nil
}

// snapshot returns the current dataset generation or the not-loaded error.
func (s *PipelineService) snapshot() (*loadedDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, apperrors.ErrDatasetNotLoaded
	}
	return s.current, nil
}

// cacheKey is the dataset generation plus the canonical JSON of the request.
// json.Marshal sorts map keys, so equal selections always produce equal keys.
func cacheKey(datasetID string, req DeriveRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to build cache key: %w", err)
	}
	return datasetID + "|" + string(raw), nil
}

// errorClass buckets derivation failures for the error counter.
func errorClass(err error) string {
	var se *dataset.SchemaError
	if stderrors.As(err, &se) {
		return "schema"
	}
	return "internal"
}
