package indicator

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// artifactExtension is the file extension of indicator cache artifacts.
const artifactExtension = ".parquet"

// timeColumn is the timestamp index column of every artifact.
const timeColumn = "time"

// Storage is the content-addressed indicator result cache.
//
// Concurrency contract: many workers may call Save for different keys
// concurrently. Two workers must never Save the same key in one run; the
// calculation engine guarantees this by partitioning work before dispatch,
// not by locking the store.
type Storage interface {
	// UniverseKey returns the universe fingerprint this storage serves.
	UniverseKey() string
	// ArtifactPath returns the on-disk location of one artifact. Pure, no I/O.
	ArtifactPath(definition *Definition, pair types.TradingPair) string
	// Has checks artifact existence with a single filesystem stat.
	Has(key Key) bool
	// Load deserializes an artifact. Returns ErrCodeCacheCorrupt when the
	// file exists but cannot be parsed; this is never treated as a miss.
	Load(key Key) (types.Frame, error)
	// Save publishes an artifact atomically so concurrent readers never
	// observe a partial file.
	Save(key Key, frame types.Frame) error
}

// DiskStorage is a parquet file backed Storage. Artifacts are laid out as
// <root>/<universe_key>/<fragment>-<BASE>-<QUOTE>.parquet so a universe
// change can never silently serve stale indicator values.
type DiskStorage struct {
	root        string
	universeKey string
	logger      *logger.Logger
}

// NewDiskStorage creates an indicator storage rooted at the given directory,
// namespaced by the universe cache key.
func NewDiskStorage(root string, universeKey string, log *logger.Logger) (*DiskStorage, error) {
	if universeKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "universe key must not be empty")
	}

	if err := os.MkdirAll(filepath.Join(root, universeKey), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create indicator storage directory", err)
	}

	return &DiskStorage{
		root:        root,
		universeKey: universeKey,
		logger:      log,
	}, nil
}

// Root returns the storage root directory.
func (s *DiskStorage) Root() string {
	return s.root
}

// UniverseKey implements Storage.
func (s *DiskStorage) UniverseKey() string {
	return s.universeKey
}

// ArtifactPath implements Storage.
func (s *DiskStorage) ArtifactPath(definition *Definition, pair types.TradingPair) string {
	filename := fmt.Sprintf("%s-%s-%s%s",
		definition.PathFragment(), pair.Base.Ticker, pair.Quote.Ticker, artifactExtension)

	return filepath.Join(s.root, s.universeKey, filename)
}

// Has implements Storage.
func (s *DiskStorage) Has(key Key) bool {
	_, err := os.Stat(s.ArtifactPath(key.Definition, key.Pair))

	return err == nil
}

// Load implements Storage.
func (s *DiskStorage) Load(key Key) (types.Frame, error) {
	path := s.ArtifactPath(key.Definition, key.Pair)

	if _, err := os.Stat(path); err != nil {
		return types.Frame{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no cached artifact for %s", key)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return types.Frame{}, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM read_parquet('%s') ORDER BY %s ASC;`, path, timeColumn))
	if err != nil {
		return types.Frame{}, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "artifact %s exists but cannot be read", path)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil || len(columns) < 2 || columns[0] != timeColumn {
		return types.Frame{}, errors.Newf(errors.ErrCodeCacheCorrupt,
			"artifact %s has unexpected columns %v", path, columns)
	}

	valueColumns := columns[1:]

	var times []time.Time

	values := make([][]float64, len(valueColumns))

	for rows.Next() {
		scanTargets := make([]any, len(columns))

		var ts time.Time

		scanTargets[0] = &ts

		rowValues := make([]float64, len(valueColumns))
		for i := range rowValues {
			scanTargets[i+1] = &rowValues[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return types.Frame{}, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "artifact %s row cannot be parsed", path)
		}

		times = append(times, ts)

		for i, v := range rowValues {
			values[i] = append(values[i], v)
		}
	}

	if err := rows.Err(); err != nil {
		return types.Frame{}, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "artifact %s cannot be fully read", path)
	}

	frame, err := types.NewTable(times, valueColumns, values)
	if err != nil {
		return types.Frame{}, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "artifact %s is not a valid frame", path)
	}

	s.logger.Debug("Loaded cached indicator artifact",
		zap.String("key", key.String()),
		zap.Int("rows", frame.Len()),
	)

	return frame, nil
}

// Save implements Storage. The artifact is written to a temp file and
// renamed into place, so a concurrent reader sees either the complete old
// file, the complete new file, or a miss, never a truncated artifact.
func (s *DiskStorage) Save(key Key, frame types.Frame) error {
	path := s.ArtifactPath(key.Definition, key.Pair)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create artifact directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	columnDefs := make([]string, 0, len(frame.Columns)+1)
	columnDefs = append(columnDefs, fmt.Sprintf("%s TIMESTAMP", timeColumn))

	for _, column := range frame.Columns {
		columnDefs = append(columnDefs, fmt.Sprintf("%s DOUBLE", quoteIdentifier(column)))
	}

	if _, err := db.Exec(fmt.Sprintf(`CREATE TABLE artifact (%s);`, strings.Join(columnDefs, ", "))); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to create artifact table for %s", key)
	}

	placeholders := make([]string, len(frame.Columns)+1)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insert, err := db.Prepare(fmt.Sprintf(`INSERT INTO artifact VALUES (%s);`, strings.Join(placeholders, ", ")))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to prepare artifact insert for %s", key)
	}
	defer insert.Close()

	for i := range frame.Times {
		args := make([]any, 0, len(frame.Columns)+1)
		args = append(args, frame.Times[i])

		for c := range frame.Columns {
			args = append(args, frame.Values[c][i])
		}

		if _, err := insert.Exec(args...); err != nil {
			return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to insert artifact row for %s", key)
		}
	}

	tempPath := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())

	if _, err := db.Exec(fmt.Sprintf(`COPY artifact TO '%s' (FORMAT PARQUET);`, tempPath)); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to write artifact parquet for %s", key)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)

		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to publish artifact for %s", key)
	}

	s.logger.Debug("Saved indicator artifact",
		zap.String("key", key.String()),
		zap.Int("rows", frame.Len()),
	)

	return nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
