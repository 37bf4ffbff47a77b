package universe

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type DataSourceTestSuite struct {
	suite.Suite

	ds   *CandleDataSource
	path string
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) SetupTest() {
	ds, err := NewCandleDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.ds = ds

	suite.path = filepath.Join(suite.T().TempDir(), "WETH-USDC.parquet")
	suite.writeCandleParquet(suite.path, 10)
}

func (suite *DataSourceTestSuite) TearDownTest() {
	suite.NoError(suite.ds.Close())
}

// writeCandleParquet creates a parquet file with n daily candles starting at
// 2021-06-01, closes 1000, 1010, 1020, ...
func (suite *DataSourceTestSuite) writeCandleParquet(path string, n int) {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	_, err = db.Exec(`CREATE TABLE candles (time TIMESTAMP, open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, volume DOUBLE);`)
	suite.Require().NoError(err)

	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		c := 1000.0 + float64(i)*10

		_, err = db.Exec(`INSERT INTO candles VALUES ($1, $2, $3, $4, $5, $6);`,
			start.Add(time.Duration(i)*24*time.Hour), c, c+5, c-5, c, 1000.0)
		suite.Require().NoError(err)
	}

	_, err = db.Exec(fmt.Sprintf(`COPY candles TO '%s' (FORMAT PARQUET);`, path))
	suite.Require().NoError(err)
}

func (suite *DataSourceTestSuite) TestReadAllCandles() {
	candles, err := suite.ds.ReadCandles(suite.path, optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Len(candles, 10)
	suite.InDelta(1000, candles[0].Close, 1e-9)
	suite.InDelta(1090, candles[9].Close, 1e-9)

	for i := 1; i < len(candles); i++ {
		suite.True(candles[i].Time.After(candles[i-1].Time))
	}
}

func (suite *DataSourceTestSuite) TestReadCandlesWithRange() {
	start := time.Date(2021, 6, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 6, 0, 0, 0, 0, time.UTC)

	candles, err := suite.ds.ReadCandles(suite.path, optional.Some(start), optional.Some(end))
	suite.NoError(err)
	suite.Len(candles, 4)
	suite.InDelta(1020, candles[0].Close, 1e-9)
	suite.InDelta(1050, candles[3].Close, 1e-9)
}

func (suite *DataSourceTestSuite) TestReadMissingFileFails() {
	_, err := suite.ds.ReadCandles(filepath.Join(suite.T().TempDir(), "missing.parquet"),
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
}

func (suite *DataSourceTestSuite) TestLoadUniverse() {
	pair := types.TradingPair{
		Base:       types.AssetIdentifier{Ticker: "WETH", Decimals: 18},
		Quote:      types.AssetIdentifier{Ticker: "USDC", Decimals: 6},
		InternalID: 1,
	}

	univ, err := LoadUniverse(suite.ds, "ethereum", types.TimeBucket1d,
		[]PairDataFile{{Pair: pair, Path: suite.path}},
		optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Equal(1, univ.PairCount())
	suite.Len(univ.Candles(pair), 10)
	suite.Equal("ethereum,1d,WETH-USDC,2021-06-01-2021-06-10", univ.CacheKey())
}
