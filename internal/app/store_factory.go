package app

import (
	"strings"

	"github.com/smilefoto/klicka/internal/store"
	"github.com/smilefoto/klicka/internal/store/memory"
	"github.com/smilefoto/klicka/internal/store/postgres"
	"github.com/smilefoto/klicka/internal/store/redis"
	"github.com/smilefoto/klicka/internal/store/sqlite"
)

// NewKVStore picks the substrate from the DSN shape: a postgres or redis
// URL selects those backends, the literal "memory" an in-process map, and
// anything else is treated as a sqlite file path.
func NewKVStore(dsn string) (store.KVStore, error) {
	dbType := store.DBTypeSQLite
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		dbType = store.DBTypePostgres
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		dbType = store.DBTypeRedis
	case dsn == "memory":
		dbType = store.DBTypeMemory
	}

	switch dbType {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn)
	case store.DBTypeRedis:
		return redis.NewRedisStore(dsn)
	case store.DBTypeMemory:
		return memory.NewMemoryStore(), nil
	default:
		return sqlite.NewSQLiteStore(dsn)
	}
}
