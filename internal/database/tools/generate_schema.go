// Command generate_schema writes the SQLite schema produced by the embedded
// migrations to internal/database/schema.sql, for reviewing migration diffs.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"portalsync/internal/database"
	"portalsync/internal/database/migrations"
)

const schemaHeader = `-- Generated by internal/database/tools/generate_schema.go; do not edit.
-- Regenerate with: go generate ./internal/database
`

func main() {
	out := flag.String("out", "internal/database/schema.sql", "file to write the schema to")
	flag.Parse()
	log.SetFlags(0)

	db, err := database.OpenConnection(":memory:")
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db, migrations.SQLite); err != nil {
		log.Fatalf("applying migrations: %v", err)
	}

	schema, err := dumpSchema(db)
	if err != nil {
		log.Fatalf("reading schema: %v", err)
	}
	if err := os.WriteFile(*out, []byte(schema), 0o644); err != nil {
		log.Fatalf("writing %s: %v", *out, err)
	}
	fmt.Printf("wrote %s\n", *out)
}

// dumpSchema lists tables then indexes by name, leaving out sqlite internals
// and the migrate bookkeeping table.
func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 0 ELSE 1 END, name`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(schemaHeader)
	for rows.Next() {
		var kind, name, stmt string
		if err := rows.Scan(&kind, &name, &stmt); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n-- %s %s\n%s;\n", kind, name, strings.TrimSpace(stmt))
	}
	return b.String(), rows.Err()
}
