package preferences

import (
	"fmt"
	"log/slog"
)

// NewStore opens the store backend named by storeType
func NewStore(storeType, connectionString string) (store Store, err error) {
	switch storeType {
	case "sqlite":
		store, err = NewSQLiteStore(connectionString)
	case "redis":
		store, err = NewRedisStore(connectionString)
	case "bolt":
		store, err = NewBoltStore(connectionString)
	default:
		return nil, fmt.Errorf("unsupported preferences store: %s", storeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s preferences store: %w", storeType, err)
	}

	slog.Info("preferences store opened", "type", storeType)
	return store, nil
}
