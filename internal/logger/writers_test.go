package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSafeCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	header := []string{"timestamp", "tokens", "flagged", "total_ada_reserve", "error"}

	writer, err := NewSafeCSVWriter(path, header, 50*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create CSV writer: %v", err)
	}

	records := [][]string{
		{"2026-08-25T10:00:00Z", "3", "1", "1523000000", ""},
		{"2026-08-25T10:00:30Z", "3", "1", "1524100000", ""},
		{"2026-08-25T10:01:00Z", "0", "0", "0", "discovery request failed"},
	}
	for _, rec := range records {
		if err := writer.WriteRecord(rec); err != nil {
			t.Fatalf("WriteRecord failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	written, _ := writer.GetStats()
	if written != 3 {
		t.Errorf("Expected 3 records written, got %d", written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 { // header + 3 records
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	if lines[0] != strings.Join(header, ",") {
		t.Errorf("Header mismatch: %q", lines[0])
	}
}

func TestSafeCSVWriterAppendSkipsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	header := []string{"timestamp", "tokens"}

	first, err := NewSafeCSVWriter(path, header, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create CSV writer: %v", err)
	}
	if err := first.WriteRecord([]string{"t1", "2"}); err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening appends without duplicating the header.
	second, err := NewSafeCSVWriter(path, header, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to reopen CSV writer: %v", err)
	}
	if err := second.WriteRecord([]string{"t2", "3"}); err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 records, got %d lines", len(lines))
	}
}
