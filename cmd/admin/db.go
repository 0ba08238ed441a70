package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hearthfield.game/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "days"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = indexdb.PathFor(*dataDir, *worldID)
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runQuery(ctx, db, q, *limit, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, db *sql.DB, q string, limit int, emit func(any)) error {
	if limit <= 0 {
		limit = 20
	}
	switch q {
	case "days":
		rows, err := indexdb.DayEnds(ctx, db, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			emit(r)
		}
	case "seasons":
		rows, err := indexdb.Seasons(ctx, db)
		if err != nil {
			return err
		}
		for _, r := range rows {
			emit(r)
		}
	case "saves":
		rows, err := indexdb.Saves(ctx, db, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			emit(r)
		}
	case "meta":
		out := map[string]string{}
		for _, k := range []string{"schema_version", "tuning_digest", "updated_at"} {
			v, ok, err := indexdb.Meta(ctx, db, k)
			if err != nil {
				return err
			}
			if ok {
				out[k] = v
			}
		}
		emit(out)
	default:
		return fmt.Errorf("unknown query %q (want days|seasons|saves|meta)", q)
	}
	return nil
}
