// cleanup-stale-sessions removes abandoned data-entry sessions from the
// database. A session counts as abandoned when it is still active but has
// seen no activity for longer than the cutoff.
//
// Terminal sessions (approved, cancelled) are never touched: they are the
// audit record of applied footprint changes.
//
// Usage: go run ./scripts/cleanup-stale-sessions <company-id>
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run     Show what would be deleted without actually deleting (default: true)
//	-older-than  Inactivity cutoff in days (default: 30)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	olderThan := flag.Int("older-than", 30, "Inactivity cutoff in days")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-dry-run=false] [-older-than=30] <company-id>\n", os.Args[0])
		os.Exit(1)
	}

	companyID, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid company ID: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	// Set RLS context for the company
	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_company_id', $1, false)", companyID.String()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set RLS context: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually delete sessions")
		fmt.Println()
	}

	cutoff := time.Now().AddDate(0, 0, -*olderThan)

	deleted, err := cleanupStaleSessions(ctx, conn, companyID, cutoff, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Printf("\nTotal sessions that would be deleted: %d\n", deleted)
	} else {
		fmt.Printf("\nTotal sessions deleted: %d\n", deleted)
	}
}

// cleanupStaleSessions deletes active sessions last touched before the cutoff,
// together with their message log. If dryRun is true, it only shows what would
// be deleted without making changes.
func cleanupStaleSessions(ctx context.Context, conn *pgx.Conn, companyID uuid.UUID, cutoff time.Time, dryRun bool) (int, error) {
	if dryRun {
		rows, err := conn.Query(ctx, `
			SELECT s.id, s.updated_at,
			       (SELECT COUNT(*) FROM esg_session_messages m WHERE m.session_id = s.id)
			FROM esg_sessions s
			WHERE s.company_id = $1
			  AND s.status = 'active'
			  AND s.updated_at < $2
		`, companyID, cutoff)
		if err != nil {
			return 0, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()

		var count int
		for rows.Next() {
			var id uuid.UUID
			var updatedAt time.Time
			var messages int
			if err := rows.Scan(&id, &updatedAt, &messages); err != nil {
				return 0, fmt.Errorf("scan failed: %w", err)
			}
			count++
			fmt.Printf("  %s - last activity %s, %d messages\n", id, updatedAt.Format("2006-01-02"), messages)
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("rows iteration failed: %w", err)
		}

		if count == 0 {
			fmt.Println("  No stale sessions")
		}
		return count, nil
	}

	// Messages carry no cascade; delete them before their sessions.
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM esg_session_messages
		WHERE session_id IN (
			SELECT id FROM esg_sessions
			WHERE company_id = $1 AND status = 'active' AND updated_at < $2
		)
	`, companyID, cutoff); err != nil {
		return 0, fmt.Errorf("delete messages failed: %w", err)
	}

	result, err := tx.Exec(ctx, `
		DELETE FROM esg_sessions
		WHERE company_id = $1 AND status = 'active' AND updated_at < $2
	`, companyID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete sessions failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}

	count := int(result.RowsAffected())
	fmt.Printf("Deleted %d stale sessions\n", count)
	return count, nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "postgres")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "esg_engine")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
