package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-web/internal/config"
	"library-web/library"
)

// bookRecord is one parsed CSV row.
type bookRecord struct {
	Line   int
	Title  string
	Author string
	Year   int
}

// readBooks parses title,author,year rows. A leading header row is skipped.
// Malformed rows are reported in rowErrs and do not stop the import.
func readBooks(r io.Reader) (records []bookRecord, rowErrs []error, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "title") {
			continue
		}
		if len(row) != 3 {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(row)))
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: invalid year %q", line, row[2]))
			continue
		}
		records = append(records, bookRecord{
			Line:   line,
			Title:  strings.TrimSpace(row[0]),
			Author: strings.TrimSpace(row[1]),
			Year:   year,
		})
	}
	return records, rowErrs, nil
}

func main() {
	file := flag.String("file", "books.csv", "CSV file with title,author,year rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	records, rowErrs, err := readBooks(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *file, err)
		os.Exit(1)
	}

	manager, err := library.NewLibraryManager(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	ctx := context.Background()
	fmt.Printf("Importing books from %s...\n", *file)

	for _, e := range rowErrs {
		fmt.Printf("Warning: %v, skipping\n", e)
	}

	successCount := 0
	errorCount := len(rowErrs)
	for _, rec := range records {
		fmt.Printf("Importing: %s by %s (%d)... ", rec.Title, rec.Author, rec.Year)
		id, err := manager.AddBook(ctx, rec.Title, rec.Author, rec.Year)
		if err != nil {
			fmt.Printf("ERROR - line %d: %v\n", rec.Line, err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)
}
