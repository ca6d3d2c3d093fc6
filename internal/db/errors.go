package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound         = errors.New("db: key not found")
	ErrIndexNotFound       = errors.New("db: index not found")
	ErrIndexExists         = errors.New("db: index already exists")
	ErrCollectionNotFound  = errors.New("db: collection not found")
	ErrCollectionExists    = errors.New("db: collection already exists")
	ErrUnsupportedSelector = errors.New("db: empty delete selector")
)

// Op names used for error context. Redis ops match command names.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGet        = "HGET"
	OpHSet        = "HSET"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"

	OpCollectionInfo   = "GetCollectionInfo"
	OpCreateCollection = "CreateCollection"
	OpCreateFieldIndex = "CreateFieldIndex"
	OpUpsert           = "Upsert"
	OpQuery            = "Search"
	OpDelete           = "Delete"
	OpHealth           = "HealthCheck"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
