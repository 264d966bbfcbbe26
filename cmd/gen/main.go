package main

import (
	"context"
	"flag"
	"log"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/internal/database"
	"jlpt-listening/internal/services/ingest"

	"gorm.io/gen"
)

// gen writes typed query helpers for the persisted models into
// internal/database/query.
func main() {
	cfgPath := flag.String("config", "config.yml", "path to the YAML config file")
	out := flag.String("out", "internal/database/query", "output package directory")
	flag.Parse()

	if err := config.Init(*cfgPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Open(context.Background())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	g := gen.NewGenerator(gen.Config{
		OutPath:        *out,
		Mode:           gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:  true,
		FieldCoverable: true,
	})

	g.UseDB(db)

	g.ApplyBasic(
		vectorstore.VectorCollection{},
		vectorstore.VectorEntry{},
		ingest.Transcript{},
	)

	g.Execute()
}
