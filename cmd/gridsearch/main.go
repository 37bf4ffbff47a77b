package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/grid"
	"github.com/rxtech-lab/argo-research/internal/indicator"
	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy/smacross"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/internal/universe"
)

// topResults is how many ranked combinations the run summary prints.
const topResults = 10

func main() {
	cmd := &cli.Command{
		Name:  "gridsearch",
		Usage: "Search strategy parameter grids over cached indicators",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Expand a parameter grid and backtest every combination",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the search config YAML",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Directory of candle parquet files named BASE-QUOTE.parquet; omit to run on synthetic data",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Result root directory",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "cache",
						Usage: "Indicator cache root directory",
						Value: "cache",
					},
					&cli.BoolFlag{
						Name:  "clear-cache",
						Usage: "Discard completed combination results and recompute everything",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the terminal progress bar",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the search config format",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	lg, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer lg.Sync()

	config, err := grid.LoadSearchConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	univ, err := buildUniverse(config, cmd.String("data"), lg)
	if err != nil {
		return err
	}

	lg.Info("Universe loaded",
		zap.String("cache_key", univ.CacheKey()),
		zap.Int("pairs", univ.PairCount()),
	)

	storage, err := indicator.NewDiskStorage(cmd.String("cache"), univ.CacheKey(), lg)
	if err != nil {
		return err
	}

	resultRoot := filepath.Join(cmd.String("results"), config.Name)

	results, err := grid.RunGridSearchBacktest(
		ctx,
		config.Grid.ToParameterGrid(),
		resultRoot,
		grid.BacktestWorkerConfig{
			Universe:         univ,
			Storage:          storage,
			CreateIndicators: smacross.CreateIndicators,
			DecideTrades:     smacross.DecideTrades,
			InitialDeposit:   config.InitialDeposit,
			FeeRate:          config.FeeRate,
			Calculation:      indicator.DefaultCalculationOptions(),
			Logger:           lg,
		},
		grid.PrepareOptions{ClearCachedResults: cmd.Bool("clear-cache")},
		grid.SearchOptions{
			MaxWorkers:   config.MaxWorkers,
			ShowProgress: !cmd.Bool("no-progress"),
		},
		lg,
	)
	if err != nil {
		return err
	}

	ranked, err := grid.AnalyseSearchResults(results, grid.MetricTotalReturn)
	if err != nil {
		return err
	}

	printRanking(ranked)

	best := ranked[0].Result

	bestPath := filepath.Join(resultRoot, "best.yaml")
	if err := types.WritePerformanceReport(bestPath, best.Summary, best.Metrics); err != nil {
		return err
	}

	lg.Info("Best combination report written", zap.String("path", bestPath))

	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schemaJSON, err := (&grid.SearchConfig{}).GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schemaJSON)

	return nil
}

func newLogger(debug bool) (*logger.Logger, error) {
	if debug {
		return logger.NewDebugLogger()
	}

	return logger.NewLogger()
}

// buildUniverse loads candle parquet files from the data directory, or
// generates a synthetic two pair universe when no directory is given.
func buildUniverse(config *grid.SearchConfig, dataDir string, lg *logger.Logger) (*universe.TradingUniverse, error) {
	if dataDir == "" {
		return syntheticUniverse(config)
	}

	matches, err := filepath.Glob(filepath.Join(dataDir, "*.parquet"))
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)

	files := make([]universe.PairDataFile, 0, len(matches))

	for i, path := range matches {
		base, quote, ok := parsePairFilename(path)
		if !ok {
			lg.Warn("Skipping parquet file not named BASE-QUOTE.parquet", zap.String("path", path))

			continue
		}

		files = append(files, universe.PairDataFile{
			Pair: types.TradingPair{
				Base:       types.AssetIdentifier{Ticker: base},
				Quote:      types.AssetIdentifier{Ticker: quote},
				InternalID: i + 1,
			},
			Path: path,
		})
	}

	ds, err := universe.NewCandleDataSource(lg)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	return universe.LoadUniverse(ds, config.ChainSlug, config.Bucket, files, config.StartTime, config.EndTime)
}

func parsePairFilename(path string) (string, string, bool) {
	name := strings.TrimSuffix(filepath.Base(path), ".parquet")

	parts := strings.Split(name, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

func syntheticUniverse(config *grid.SearchConfig) (*universe.TradingUniverse, error) {
	start := config.StartTime.TakeOr(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC))
	end := config.EndTime.TakeOr(start.AddDate(0, 6, 0))

	weth := types.TradingPair{
		Base:       types.AssetIdentifier{Ticker: "WETH", Decimals: 18},
		Quote:      types.AssetIdentifier{Ticker: "USDC", Decimals: 6},
		InternalID: 1,
	}
	wbtc := types.TradingPair{
		Base:       types.AssetIdentifier{Ticker: "WBTC", Decimals: 8},
		Quote:      types.AssetIdentifier{Ticker: "USDC", Decimals: 6},
		InternalID: 2,
	}

	candleConfig := universe.SyntheticCandleConfig{
		StartTime:    start,
		EndTime:      end,
		Bucket:       config.Bucket,
		InitialPrice: 1800,
		Seed:         1,
	}

	wethCandles, err := universe.GenerateSyntheticCandles(candleConfig)
	if err != nil {
		return nil, err
	}

	candleConfig.InitialPrice = 35000
	candleConfig.Seed = 2

	wbtcCandles, err := universe.GenerateSyntheticCandles(candleConfig)
	if err != nil {
		return nil, err
	}

	return universe.New(config.ChainSlug, config.Bucket,
		[]types.TradingPair{weth, wbtc},
		map[int][]types.Candle{1: wethCandles, 2: wbtcCandles})
}

func printRanking(ranked []grid.RankedResult) {
	fmt.Println("\nTop combinations by total return:")

	limit := len(ranked)
	if limit > topResults {
		limit = topResults
	}

	for i := 0; i < limit; i++ {
		result := ranked[i].Result

		parts := make([]string, len(result.Parameters))
		for j, parameter := range result.Parameters {
			parts[j] = fmt.Sprintf("%s=%v", parameter.Name, parameter.Value)
		}

		fmt.Printf("%2d. %-40s return=%+.2f%% trades=%d win_rate=%.0f%% max_dd=%.2f%%\n",
			i+1,
			strings.Join(parts, ", "),
			result.Metrics.TotalReturn*100,
			result.Summary.NumberOfTrades,
			result.Summary.WinRate*100,
			result.Metrics.MaxDrawdown*100,
		)
	}
}
