package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	"go-propflow/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// DocumentDB is the read-only connection to the external relational document
// index. The index is a collaborator, not ours: a failed ping is logged and the
// engine keeps running, because auto-completion is best-effort anyway.
type DocumentDB struct {
	DB *sql.DB
}

// NewDocumentDB opens the Postgres pool for the document index
func NewDocumentDB(lc fx.Lifecycle, cfg *config.Config) (*DocumentDB, error) {
	db, err := sql.Open("postgres", cfg.DocsPGDSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("Document index unreachable (auto-complete disabled until it recovers): %v", err)
	} else {
		log.Println("Connected to document index!")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return &DocumentDB{DB: db}, nil
}
