package grid

import (
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// resultFilename is the name of the per-combination result artifact.
const resultFilename = "result.yaml"

// ResultSchemaVersion is the schema version written into every result file.
// A result with a different major version cannot be resumed from.
const ResultSchemaVersion = "1.0.0"

// SearchResult is the persisted outcome of one grid combination.
type SearchResult struct {
	SchemaVersion string                   `yaml:"schema_version"`
	RunID         string                   `yaml:"run_id"`
	Parameters    []Parameter              `yaml:"parameters"`
	Summary       types.TradeSummary       `yaml:"summary"`
	Metrics       types.PerformanceMetrics `yaml:"metrics"`
	CompletedAt   time.Time                `yaml:"completed_at"`

	// Cached is true when the result was loaded from disk rather than
	// computed in this run. Not persisted.
	Cached bool `yaml:"-"`
}

// HasResult reports whether a completed result exists on disk for the
// combination.
func HasResult(combination Combination) (bool, error) {
	path, err := combination.ResultPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)

	return err == nil, nil
}

// LoadResult reads a persisted combination result. A missing file is
// ErrCodeDataNotFound; a file that exists but cannot be parsed is
// ErrCodeCacheCorrupt and is never silently recomputed.
func LoadResult(combination Combination) (*SearchResult, error) {
	path, err := combination.ResultPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no result for combination %s", combination.Label())
		}

		return nil, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "result for combination %s cannot be read", combination.Label())
	}

	var result SearchResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "result for combination %s cannot be parsed", combination.Label())
	}

	if err := checkSchemaVersion(result.SchemaVersion); err != nil {
		return nil, err
	}

	result.Cached = true

	return &result, nil
}

// SaveResult persists a combination result atomically via a temp file and
// rename, so an interrupted run never leaves a partial result that a resume
// would mistake for a completed combination.
func SaveResult(combination Combination, result *SearchResult) error {
	path, err := combination.ResultPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "result for combination %s cannot be serialized", combination.Label())
	}

	tempPath := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "result for combination %s cannot be written", combination.Label())
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)

		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "result for combination %s cannot be published", combination.Label())
	}

	return nil
}

func checkSchemaVersion(version string) error {
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheCorrupt, err, "result has invalid schema version %q", version)
	}

	current := semver.MustParse(ResultSchemaVersion)
	if parsed.Major() != current.Major() {
		return errors.Newf(errors.ErrCodeSchemaVersionMismatch,
			"result schema version %s is not compatible with %s", version, ResultSchemaVersion)
	}

	return nil
}
