// Package sqlite persists pipeline output in a SQLite database.
//
// A DB owns the connection and its schema, which is migrated from the
// SQL files embedded in this package. A ResultStore binds a DB to one
// run id and implements spectral.Sink, so it can sit next to any other
// sink in a spectral.MultiSink. Every row carries the run id, which lets
// several runs share one database file.
package sqlite
