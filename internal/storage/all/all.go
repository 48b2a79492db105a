// Package all registers every storage backend. Import it for side effects.
package all

import (
	_ "gamestar/internal/storage/mssql"
	_ "gamestar/internal/storage/postgres"
	_ "gamestar/internal/storage/sqlite"
)
