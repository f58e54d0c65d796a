package store

import (
	"context"
	"fmt"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/db"
)

// Open builds the store selected by cfg.Store.Type. The returned database is
// nil unless the store is backed by SQLite; the caller closes it.
func Open(ctx context.Context, cfg *config.Config, accessKeyID, accessKeySecret string) (ResumeStore, db.DB, error) {
	baseURL := cfg.Site.BaseURL

	switch cfg.Store.Type {
	case config.StoreS3:
		client, err := NewS3Client(ctx, cfg.Store.S3, accessKeyID, accessKeySecret)
		if err != nil {
			return nil, nil, err
		}
		return NewS3Store(client, cfg.Store.S3, baseURL), nil, nil
	case config.StoreMemory:
		return NewMemoryStore(baseURL), nil, nil
	default:
		database := db.NewSQLite(cfg.Store.SQLite.Path)
		if err := database.InitDB(); err != nil {
			return nil, nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		return NewSQLStore(database, baseURL), database, nil
	}
}
