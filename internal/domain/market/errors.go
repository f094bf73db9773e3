package market

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the dispatch and protocol layers can see.
// The set is closed; callers switch on it instead of probing error types.
type Kind int

const (
	KindUnknown Kind = iota
	KindSymbolNotFound
	KindUpstream
	KindInvalidParameter
	KindDataNotAvailable
	KindCacheUnavailable
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindSymbolNotFound:
		return "symbol_not_found"
	case KindUpstream:
		return "upstream_error"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindDataNotAvailable:
		return "data_not_available"
	case KindCacheUnavailable:
		return "cache_unavailable"
	case KindSerialization:
		return "serialization_error"
	default:
		return "unknown"
	}
}

var (
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrUpstream          = errors.New("upstream api error")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDataNotAvailable  = errors.New("data not available")
	ErrCacheUnavailable  = errors.New("cache unavailable")
	ErrSerialization     = errors.New("value is not json serializable")
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrOperationDisabled = errors.New("operation has no fetch function")
)

// Error carries the kind plus whichever details the kind needs to render
// a useful message.
type Error struct {
	Kind        Kind
	Symbol      string
	Param       string
	Value       string
	ValidValues []string
	DataType    string
	Op          string
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindSymbolNotFound:
		return fmt.Sprintf("Ticker '%s' not found or has no data available", e.Symbol)
	case KindUpstream:
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		if e.Symbol != "" {
			return fmt.Sprintf("Yahoo Finance API error for ticker '%s': %s", e.Symbol, msg)
		}
		return "Yahoo Finance API error: " + msg
	case KindInvalidParameter:
		if len(e.ValidValues) > 0 {
			return fmt.Sprintf("Invalid value '%s' for parameter '%s'. Valid values are: %s",
				e.Value, e.Param, strings.Join(e.ValidValues, ", "))
		}
		return fmt.Sprintf("Invalid value '%s' for parameter '%s'", e.Value, e.Param)
	case KindDataNotAvailable:
		return fmt.Sprintf("Data type '%s' is not available for ticker '%s'", e.DataType, e.Symbol)
	case KindCacheUnavailable:
		if e.Err == nil {
			return "cache unavailable: " + e.Op
		}
		return fmt.Sprintf("cache unavailable: %s: %v", e.Op, e.Err)
	case KindSerialization:
		if e.Err == nil {
			return ErrSerialization.Error()
		}
		return fmt.Sprintf("%s: %v", ErrSerialization.Error(), e.Err)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind exposes the kind name to loggers that cannot import this package.
func (e *Error) ErrorKind() string { return e.Kind.String() }

// Is lets errors.Is match the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSymbolNotFound:
		return e.Kind == KindSymbolNotFound
	case ErrUpstream:
		return e.Kind == KindUpstream
	case ErrInvalidParameter:
		return e.Kind == KindInvalidParameter
	case ErrDataNotAvailable:
		return e.Kind == KindDataNotAvailable
	case ErrCacheUnavailable:
		return e.Kind == KindCacheUnavailable
	case ErrSerialization:
		return e.Kind == KindSerialization
	}
	return false
}

func SymbolNotFound(symbol string) *Error {
	return &Error{Kind: KindSymbolNotFound, Symbol: symbol}
}

func Upstream(symbol string, err error) *Error {
	return &Error{Kind: KindUpstream, Symbol: symbol, Err: err}
}

func InvalidParameter(param string, value string, validValues ...string) *Error {
	return &Error{Kind: KindInvalidParameter, Param: param, Value: value, ValidValues: validValues}
}

func DataNotAvailable(dataType string, symbol string) *Error {
	return &Error{Kind: KindDataNotAvailable, DataType: dataType, Symbol: symbol}
}

func CacheUnavailable(op string, err error) *Error {
	return &Error{Kind: KindCacheUnavailable, Op: op, Err: err}
}

func Serialization(err error) *Error {
	return &Error{Kind: KindSerialization, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnknown
}

// IsFetchFailure reports whether err came from the data provider side
// rather than from the cache.
func IsFetchFailure(err error) bool {
	switch KindOf(err) {
	case KindSymbolNotFound, KindUpstream, KindInvalidParameter, KindDataNotAvailable:
		return true
	}
	return false
}
