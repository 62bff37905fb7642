package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderRequest  ErrorCode = 102
	ErrCodeInvalidVolume        ErrorCode = 103
	ErrCodeInvalidPrice         ErrorCode = 104
	ErrCodePriceRequired        ErrorCode = 105
	ErrCodeUnsupportedOrderType ErrorCode = 106

	// Data errors (200-299)
	ErrCodeMarketDataMissing   ErrorCode = 200
	ErrCodeHistoricalDataEmpty ErrorCode = 201
	ErrCodeBadHistoricalBar    ErrorCode = 202
	ErrCodeDataParseFailed     ErrorCode = 203

	// Trading errors (500-599)
	ErrCodeOrderFailed        ErrorCode = 500
	ErrCodePositionNotFound   ErrorCode = 501
	ErrCodeOrderNotFound      ErrorCode = 502
	ErrCodeInsufficientMargin ErrorCode = 503
	ErrCodeNotConnected       ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 600
	ErrCodeBacktestMainSymbol   ErrorCode = 601
	ErrCodeBacktestNoDecisionFn ErrorCode = 602
	ErrCodeBacktestRunFailed    ErrorCode = 603

	// Report errors (700-799)
	ErrCodeReportEmptyReturns ErrorCode = 700
	ErrCodeReportWriteFailed  ErrorCode = 701
)
