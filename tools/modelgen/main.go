package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

func main() {
	var dsn, out, tables string
	flag.StringVar(&dsn, "dsn", os.Getenv("BLOOM_DB_DSN"), "postgres dsn of a migrated database")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.StringVar(&tables, "tables", "world_saves,member_stats,world_chunks", "comma separated tables to generate")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or BLOOM_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:      out,
		ModelPkgPath: "model",
		Mode:         gen.WithoutContext,
	})
	g.UseDB(db)
	var names []string
	for _, table := range strings.Split(tables, ",") {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}
		g.GenerateModel(table)
		names = append(names, table)
	}
	g.Execute()

	fmt.Printf("generated gorm models for %s at %s\n", strings.Join(names, ", "), out)
}
