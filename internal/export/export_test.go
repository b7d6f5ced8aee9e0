// internal/export/export_test.go
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

const milkUnit = "1f7a58a1aa1e6b047a42109ade331ce26c9c2cce027d043ff264fb1f" + "4d494c4b"

func sampleReport() diag.Report {
	return diag.Report{
		Results: []diag.Result{
			{Name: "token list", Status: diag.StatusPass, Detail: "3 tokens"},
			{Name: "native token", Status: diag.StatusPass, Detail: "ADA present once and not a pool token"},
			{Name: "deprecated identifiers", Status: diag.StatusPass, Detail: "no retired identifiers"},
			{Name: "liquidity threshold", Status: diag.StatusWarn, Detail: "below threshold: WMT"},
			{Name: "token metadata", Status: diag.StatusPass, Detail: "symbols, decimals and policy ids look sane"},
			{Name: "balance scaling", Status: diag.StatusPass, Detail: "1 assets scale exactly"},
			{Name: "migration state", Status: diag.StatusPass, Detail: "idle on legacy"},
		},
		Passes: 6,
		Warns:  1,
		Fails:  0,
		RanAt:  time.Now(),
	}
}

func sampleBalance() *portfolio.WalletBalance {
	return &portfolio.WalletBalance{
		Lovelace:  12_345_678,
		Ada:       portfolio.LovelaceToAda(12_345_678),
		FetchedAt: time.Now(),
		Assets: []portfolio.AssetBalance{
			{
				Unit: milkUnit, PolicyID: milkUnit[:56], AssetName: "4d494c4b",
				Symbol: "MILK", Name: "MILK", Decimals: 6,
				Amount: 1_500_000, Display: portfolio.ScaleAmount(1_500_000, 6),
			},
		},
	}
}

func sampleSnapshot() discovery.Snapshot {
	return discovery.Snapshot{
		Tokens: []discovery.TokenInfo{
			{Symbol: "ADA", Decimals: 6, Unit: chain.LovelaceUnit, IsNative: true},
			{
				Symbol: "MILK", Decimals: 6, Unit: milkUnit,
				AdaReserve: 2_000_000_000, TokenReserve: 1_000_000,
				PoolAddress: "addr1zxqmilk",
			},
			{
				Symbol: "WMT", Decimals: 6,
				Unit:       "593c3cc0f5aa9d27a16b0f41d236bae978f3a1f9d2b09b906c353cc5" + "574d54",
				AdaReserve: 400_000_000, TokenReserve: 90_000_000,
				PoolAddress: "addr1zxqwmt", LowLiquidity: true,
			},
		},
		FetchedAt: time.Now(),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestReportExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteReport(sampleReport(), Options{
		Format:          FormatCSV,
		OutputDir:       tempDir,
		IncludeWarnings: true,
	})
	if err != nil {
		t.Fatalf("failed to export report: %v", err)
	}

	base := filepath.Base(outputPath)
	if !strings.HasPrefix(base, "diagnostics_") || !strings.HasSuffix(base, ".csv") {
		t.Errorf("unexpected filename %s", base)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 8 {
		t.Fatalf("expected header plus 7 rows, got %d lines", len(lines))
	}
	if lines[0] != "check,status,detail" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[4], "liquidity threshold") || !strings.Contains(lines[4], "warn") {
		t.Errorf("warn row missing or misplaced: %s", lines[4])
	}
}

func TestReportExportDropsWarnings(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteReport(sampleReport(), Options{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to export report: %v", err)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 rows without warnings, got %d lines", len(lines))
	}
	for _, line := range lines[1:] {
		if strings.Contains(line, ",warn,") {
			t.Errorf("warn row survived the filter: %s", line)
		}
	}
}

func TestReportExportNothingLeft(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	report := diag.Report{
		Results: []diag.Result{
			{Name: "token list", Status: diag.StatusWarn, Detail: "no token snapshot yet"},
		},
		Warns: 1,
		RanAt: time.Now(),
	}
	_, err := exporter.WriteReport(report, Options{Format: FormatCSV, OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error when the filter drops every row")
	}
}

func TestReportExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteReport(sampleReport(), Options{
		Format:          FormatJSON,
		OutputDir:       tempDir,
		IncludeWarnings: true,
	})
	if err != nil {
		t.Fatalf("failed to export report: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}

	var doc reportDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(doc.Results) != 7 {
		t.Errorf("expected 7 results, got %d", len(doc.Results))
	}
	if doc.Summary.Passes != 6 || doc.Summary.Warnings != 1 || doc.Summary.Failures != 0 {
		t.Errorf("unexpected summary: %+v", doc.Summary)
	}
	if doc.Summary.Overall != "warn" {
		t.Errorf("expected overall warn, got %s", doc.Summary.Overall)
	}
}

func TestBalanceExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteBalance("lace", sampleBalance(), Options{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to export balance: %v", err)
	}

	base := filepath.Base(outputPath)
	if !strings.HasPrefix(base, "portfolio_lace_") {
		t.Errorf("unexpected filename %s", base)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 3 {
		t.Fatalf("expected header, ADA row and one asset row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "lovelace,ADA,") {
		t.Errorf("ADA must be the first data row, got: %s", lines[1])
	}
	if !strings.Contains(lines[1], "12345678") || !strings.Contains(lines[1], "12.345678") {
		t.Errorf("ADA row missing raw or display amount: %s", lines[1])
	}
	if !strings.Contains(lines[2], "MILK") || !strings.Contains(lines[2], "1.5") {
		t.Errorf("asset row missing display amount: %s", lines[2])
	}
}

func TestBalanceExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteBalance("eternl", sampleBalance(), Options{
		Format:    FormatJSON,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to export balance: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}

	var doc balanceDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Wallet != "eternl" {
		t.Errorf("expected wallet eternl, got %s", doc.Wallet)
	}
	if doc.Ada != "12.345678" {
		t.Errorf("expected ADA display 12.345678, got %s", doc.Ada)
	}
	if doc.Summary.AssetCount != 1 {
		t.Errorf("expected 1 asset, got %d", doc.Summary.AssetCount)
	}
}

func TestBalanceExportNil(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	if _, err := exporter.WriteBalance("lace", nil, Options{Format: FormatCSV, OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected an error for a nil balance")
	}
}

func TestTokensExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteTokens(sampleSnapshot(), Options{
		Format:    FormatJSON,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to export tokens: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}

	var doc tokensDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Summary.Count != 3 {
		t.Errorf("expected 3 tokens, got %d", doc.Summary.Count)
	}
	if doc.Summary.LowLiquidity != 1 {
		t.Errorf("expected 1 low-liquidity token, got %d", doc.Summary.LowLiquidity)
	}
	if want := uint64(2_400_000_000); doc.Summary.TotalAdaReserve != want {
		t.Errorf("expected total reserve %d, got %d", want, doc.Summary.TotalAdaReserve)
	}
	if !doc.Tokens[0].IsNative {
		t.Error("first token should be the native entry")
	}
}

func TestTokensExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.WriteTokens(sampleSnapshot(), Options{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to export tokens: %v", err)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[3], "WMT") || !strings.Contains(lines[3], "true") {
		t.Errorf("low-liquidity flag missing from WMT row: %s", lines[3])
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}
	t.Logf("exported CSV to %s (size: %d bytes)", outputPath, info.Size())
}

func TestTokensExportEmpty(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	if _, err := exporter.WriteTokens(discovery.Snapshot{}, Options{Format: FormatCSV, OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected an error for an empty snapshot")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	_, err := exporter.WriteReport(sampleReport(), Options{Format: "yaml", OutputDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}
