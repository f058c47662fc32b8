package types

import "errors"

// Schema and row operation errors.
var (
	ErrTableExists    = errors.New("table already exists")
	ErrTableNotFound  = errors.New("table not found")
	ErrInvalidSchema  = errors.New("invalid schema")
	ErrSchemaMismatch = errors.New("record does not match table columns")
	ErrInvalidColumn  = errors.New("column not in table schema")
)

// Persistence errors.
var (
	ErrDecrypt     = errors.New("decrypt snapshot")
	ErrDeserialize = errors.New("deserialize snapshot")
	ErrFileIO      = errors.New("snapshot file I/O")
)

// Value and key errors.
var (
	ErrUnsupportedValue = errors.New("unsupported value type")
	ErrInvalidKey       = errors.New("invalid encryption key")
)

// Lifecycle and configuration errors.
var (
	ErrStoreClosed    = errors.New("store is closed")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrCodecUnknown   = errors.New("unknown codec")
	ErrPathEmpty      = errors.New("path must not be empty")
	ErrHistoryInvalid = errors.New("history must not be negative")
)
