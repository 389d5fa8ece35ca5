// Package logger provides a logging abstraction used across the ingestion
// and enrichment pipeline.
package logger

import "time"

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// Logger is the interface that wraps the basic logging methods used
// throughout the pipeline (chain adapters, extractor, classifier,
// attribution client, persistence layer, workers and supervisor).
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	// With returns a new Logger with the given fields attached to every
	// subsequent entry, used to scope a logger to a single chain.
	With(fields ...Field) Logger
}

// Option configures a Logger implementation at construction time.
type Option func(any) error

func String(key string, value string) Field   { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field   { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}
func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }
func Error(err error) Field                  { return Field{Key: "error", Value: err} }
func Any(key string, value any) Field        { return Field{Key: key, Value: value} }
