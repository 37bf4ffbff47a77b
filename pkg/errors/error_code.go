package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter         ErrorCode = 100
	ErrCodeInvalidConfiguration     ErrorCode = 101
	ErrCodeSignatureMismatch        ErrorCode = 102
	ErrCodeMissingParameter         ErrorCode = 103
	ErrCodeInvalidType              ErrorCode = 104
	ErrCodeInvalidPeriod            ErrorCode = 105
	ErrCodeUnsupportedParameterType ErrorCode = 106
	ErrCodeUnsafePathFragment       ErrorCode = 107
	ErrCodeInvalidOrder             ErrorCode = 108

	// Data/Cache errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeCacheCorrupt          ErrorCode = 203
	ErrCodeCacheWriteFailed      ErrorCode = 204
	ErrCodeSchemaVersionMismatch ErrorCode = 205

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301
	ErrCodeInsufficientData     ErrorCode = 302

	// Grid search errors (400-499)
	ErrCodeEmptyGrid              ErrorCode = 400
	ErrCodeResultPathCollision    ErrorCode = 401
	ErrCodeCombinationFailed      ErrorCode = 402
	ErrCodeResultRootNotWriteable ErrorCode = 403

	// Universe errors (500-599)
	ErrCodePairNotFound       ErrorCode = 500
	ErrCodeEmptyUniverse      ErrorCode = 501
	ErrCodeCandleRangeInvalid ErrorCode = 502

	// Backtest errors (600-699)
	ErrCodeBacktestRunFailed     ErrorCode = 600
	ErrCodeBacktestConfigError   ErrorCode = 601
	ErrCodeBacktestNoDecider     ErrorCode = 602
	ErrCodeInsufficientCash      ErrorCode = 603
	ErrCodeBacktestAborted       ErrorCode = 604
)
