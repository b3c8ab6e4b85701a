package migrations

import "embed"

// FS holds the command schema migrations, one directory per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
