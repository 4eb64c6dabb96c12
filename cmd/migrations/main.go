package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/presencepoll/internal/config"
)

// Usage:
//
//	migrations [flags] up            apply every *.up.sql in order
//	migrations [flags] down          revert every *.down.sql in reverse order
//	migrations [flags] <name>        run the single file matching name
func main() {
	config.LoadDotEnv(slog.Default())

	cfg, err := config.Parse("migrations", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.Args) < 1 {
		log.Fatal("a migration name, up or down is required.")
	}
	target := cfg.Args[0]

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var files []string
	switch target {
	case "up":
		files, err = migrationFiles(dir, ".up.sql", false)
	case "down":
		files, err = migrationFiles(dir, ".down.sql", true)
	default:
		var name string
		name, err = migrationFilePath(dir, target)
		files = []string{name}
	}
	if err != nil {
		log.Fatal(err)
	}

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Fatal(err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Failed to execute SQL file %s: %v", name, err)
		}
		fmt.Printf("Migration file %s executed successfully.\n", name)
	}
}

func migrationFiles(basePath, suffix string, reverse bool) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}

func migrationFilePath(basePath string, migrationName string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		if regex.MatchString(f.Name()) {
			return f.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file not found")
}
