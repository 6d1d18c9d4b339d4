// Package postgres implements the durable record store on PostgreSQL,
// accessed through database/sql with the pgx driver. Task arguments and
// results are stored as JSONB; schema management is embedded goose
// migrations.
package postgres
