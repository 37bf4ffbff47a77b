package universe

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// CandleDataSource reads candle history from parquet files through DuckDB.
type CandleDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewCandleDataSource opens an in-memory DuckDB instance for parquet reads.
func NewCandleDataSource(log *logger.Logger) (*CandleDataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB connection", err)
	}

	// Set DuckDB-specific optimizations
	_, err = db.Exec(`
		SET memory_limit='2GB';
		SET threads=4;
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to set DuckDB optimizations", err)
	}

	return &CandleDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// ReadCandles loads the candle rows of one parquet file, ordered by time,
// optionally restricted to a timestamp range.
func (d *CandleDataSource) ReadCandles(path string, start, end optional.Option[time.Time]) ([]types.Candle, error) {
	d.logger.Debug("Reading candles from parquet", zap.String("path", path))

	// Squirrel does not support CREATE VIEW, so the view is raw SQL
	_, err := d.db.Exec(fmt.Sprintf(`
		CREATE OR REPLACE VIEW candles AS
		SELECT * FROM read_parquet('%s');
	`, path))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create view over %s", path)
	}

	query := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("candles").
		OrderBy("time ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build candle query", err)
	}

	rows, err := d.db.Query(sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query candles from %s", path)
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var candle types.Candle

		if err := rows.Scan(&candle.Time, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle row", err)
		}

		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed while iterating candle rows", err)
	}

	return candles, nil
}

// Close closes the data source and releases any resources.
func (d *CandleDataSource) Close() error {
	return d.db.Close()
}

// PairDataFile binds one trading pair to the parquet file holding its candles.
type PairDataFile struct {
	Pair types.TradingPair
	Path string
}

// LoadUniverse builds a trading universe by reading one parquet file per pair.
func LoadUniverse(
	ds *CandleDataSource,
	chainSlug string,
	bucket types.TimeBucket,
	files []PairDataFile,
	start, end optional.Option[time.Time],
) (*TradingUniverse, error) {
	pairs := make([]types.TradingPair, 0, len(files))
	candles := make(map[int][]types.Candle, len(files))

	for _, file := range files {
		pairCandles, err := ds.ReadCandles(file.Path, start, end)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, file.Pair)
		candles[file.Pair.InternalID] = pairCandles
	}

	return New(chainSlug, bucket, pairs, candles)
}
