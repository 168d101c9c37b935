// Package db embeds the PostgreSQL schema used by the postgres storage backend.
package db

import _ "embed"

// Schema contains the DDL statements for the key/value table and the order
// index.
//
//go:embed migrations/001_schema.sql
var Schema string
