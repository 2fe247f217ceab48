// Package migrations embeds the BigQuery schema migrations applied by
// cmd/migrate.
package migrations

import "embed"

// BigQuery holds the bigquery/NNNN_name.sql files.
//
//go:embed bigquery/*.sql
var BigQuery embed.FS

// BigQueryDir is the directory of the migrations inside BigQuery.
const BigQueryDir = "bigquery"
