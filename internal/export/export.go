// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

// Format selects the on-disk encoding of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures a single export. Files are written only on
// explicit request; nothing in this package runs in the background.
type Options struct {
	Format          Format
	OutputDir       string
	IncludeWarnings bool // keep warn-status rows in diagnostics exports
}

// Exporter writes diagnostics reports, wallet balances and token
// snapshots to disk.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// ReportSummary totals a diagnostics report for the JSON payload.
type ReportSummary struct {
	Checks   int    `json:"checks"`
	Passes   int    `json:"passes"`
	Warnings int    `json:"warnings"`
	Failures int    `json:"failures"`
	Overall  string `json:"overall"`
}

type resultRow struct {
	Check  string `json:"check"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type reportDocument struct {
	ExportedAt time.Time     `json:"exported_at"`
	RanAt      time.Time     `json:"ran_at"`
	Results    []resultRow   `json:"results"`
	Summary    ReportSummary `json:"summary"`
}

// WriteReport writes a diagnostics report and returns the path of the
// created file. Warn-status results are dropped unless
// Options.IncludeWarnings is set; the summary always reflects the
// full run.
func (e *Exporter) WriteReport(report diag.Report, opts Options) (string, error) {
	results := report.Results
	if !opts.IncludeWarnings {
		kept := make([]diag.Result, 0, len(results))
		for _, res := range results {
			if res.Status != diag.StatusWarn {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no results match the export criteria")
	}

	outputPath, err := e.preparePath("diagnostics", opts)
	if err != nil {
		return "", err
	}

	switch opts.Format {
	case FormatCSV:
		records := make([][]string, 0, len(results))
		for _, res := range results {
			records = append(records, []string{res.Name, string(res.Status), res.Detail})
		}
		err = writeCSV(outputPath, []string{"check", "status", "detail"}, records)
	case FormatJSON:
		rows := make([]resultRow, 0, len(results))
		for _, res := range results {
			rows = append(rows, resultRow{Check: res.Name, Status: string(res.Status), Detail: res.Detail})
		}
		err = writeJSON(outputPath, reportDocument{
			ExportedAt: time.Now(),
			RanAt:      report.RanAt,
			Results:    rows,
			Summary:    summarizeReport(report),
		})
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("diagnostics report exported",
		zap.String("file", outputPath),
		zap.Int("results", len(results)),
		zap.String("format", string(opts.Format)))

	return outputPath, nil
}

func summarizeReport(report diag.Report) ReportSummary {
	summary := ReportSummary{
		Checks:   len(report.Results),
		Passes:   report.Passes,
		Warnings: report.Warns,
		Failures: report.Fails,
		Overall:  string(diag.StatusPass),
	}
	if report.Warns > 0 {
		summary.Overall = string(diag.StatusWarn)
	}
	if report.Fails > 0 {
		summary.Overall = string(diag.StatusFail)
	}
	return summary
}

// BalanceSummary totals a wallet balance for the JSON payload.
type BalanceSummary struct {
	AssetCount int    `json:"asset_count"`
	Ada        string `json:"ada"`
}

type assetRow struct {
	Unit     string `json:"unit"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
	Raw      uint64 `json:"raw"`
	Display  string `json:"display"`
}

type balanceDocument struct {
	ExportedAt time.Time      `json:"exported_at"`
	Wallet     string         `json:"wallet"`
	FetchedAt  time.Time      `json:"fetched_at"`
	Lovelace   uint64         `json:"lovelace"`
	Ada        string         `json:"ada"`
	Assets     []assetRow     `json:"assets"`
	Summary    BalanceSummary `json:"summary"`
}

// WriteBalance writes a wallet balance snapshot. The native coin is
// always the first row.
func (e *Exporter) WriteBalance(wallet string, balance *portfolio.WalletBalance, opts Options) (string, error) {
	if balance == nil {
		return "", fmt.Errorf("no balance to export")
	}

	prefix := "portfolio"
	if wallet != "" {
		prefix += "_" + wallet
	}
	outputPath, err := e.preparePath(prefix, opts)
	if err != nil {
		return "", err
	}

	switch opts.Format {
	case FormatCSV:
		records := make([][]string, 0, len(balance.Assets)+1)
		records = append(records, []string{
			chain.LovelaceUnit, chain.AdaSymbol, "Cardano",
			strconv.Itoa(int(chain.AdaDecimals)),
			strconv.FormatUint(balance.Lovelace, 10),
			balance.Ada.String(),
		})
		for _, asset := range balance.Assets {
			records = append(records, []string{
				asset.Unit, asset.Symbol, asset.Name,
				strconv.Itoa(int(asset.Decimals)),
				strconv.FormatUint(asset.Amount, 10),
				asset.Display.String(),
			})
		}
		err = writeCSV(outputPath, []string{"unit", "symbol", "name", "decimals", "raw", "display"}, records)
	case FormatJSON:
		rows := make([]assetRow, 0, len(balance.Assets))
		for _, asset := range balance.Assets {
			rows = append(rows, assetRow{
				Unit:     asset.Unit,
				Symbol:   asset.Symbol,
				Name:     asset.Name,
				Decimals: asset.Decimals,
				Raw:      asset.Amount,
				Display:  asset.Display.String(),
			})
		}
		err = writeJSON(outputPath, balanceDocument{
			ExportedAt: time.Now(),
			Wallet:     wallet,
			FetchedAt:  balance.FetchedAt,
			Lovelace:   balance.Lovelace,
			Ada:        balance.Ada.String(),
			Assets:     rows,
			Summary:    BalanceSummary{AssetCount: len(balance.Assets), Ada: balance.Ada.String()},
		})
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("wallet balance exported",
		zap.String("file", outputPath),
		zap.String("wallet", wallet),
		zap.Int("assets", len(balance.Assets)),
		zap.String("format", string(opts.Format)))

	return outputPath, nil
}

// TokenSummary totals a token snapshot for the JSON payload. The
// total reserve is in lovelace.
type TokenSummary struct {
	Count           int    `json:"count"`
	LowLiquidity    int    `json:"low_liquidity"`
	TotalAdaReserve uint64 `json:"total_ada_reserve"`
}

type tokenRow struct {
	Symbol       string `json:"symbol"`
	Unit         string `json:"unit"`
	Decimals     uint8  `json:"decimals"`
	AdaReserve   uint64 `json:"ada_reserve"`
	TokenReserve uint64 `json:"token_reserve"`
	PoolAddress  string `json:"pool_address,omitempty"`
	LowLiquidity bool   `json:"low_liquidity"`
	IsNative     bool   `json:"is_native,omitempty"`
}

type tokensDocument struct {
	ExportedAt time.Time    `json:"exported_at"`
	FetchedAt  time.Time    `json:"fetched_at"`
	Error      string       `json:"error,omitempty"`
	Tokens     []tokenRow   `json:"tokens"`
	Summary    TokenSummary `json:"summary"`
}

// WriteTokens writes a discovery snapshot.
func (e *Exporter) WriteTokens(snap discovery.Snapshot, opts Options) (string, error) {
	if len(snap.Tokens) == 0 {
		return "", fmt.Errorf("no tokens to export")
	}

	outputPath, err := e.preparePath("tokens", opts)
	if err != nil {
		return "", err
	}

	switch opts.Format {
	case FormatCSV:
		records := make([][]string, 0, len(snap.Tokens))
		for _, tok := range snap.Tokens {
			records = append(records, []string{
				tok.Symbol, tok.Unit,
				strconv.Itoa(int(tok.Decimals)),
				strconv.FormatUint(tok.AdaReserve, 10),
				strconv.FormatUint(tok.TokenReserve, 10),
				tok.PoolAddress,
				strconv.FormatBool(tok.LowLiquidity),
			})
		}
		err = writeCSV(outputPath,
			[]string{"symbol", "unit", "decimals", "ada_reserve", "token_reserve", "pool_address", "low_liquidity"},
			records)
	case FormatJSON:
		doc := tokensDocument{
			ExportedAt: time.Now(),
			FetchedAt:  snap.FetchedAt,
			Error:      snap.Err,
			Summary:    TokenSummary{Count: len(snap.Tokens)},
		}
		for _, tok := range snap.Tokens {
			doc.Tokens = append(doc.Tokens, tokenRow{
				Symbol:       tok.Symbol,
				Unit:         tok.Unit,
				Decimals:     tok.Decimals,
				AdaReserve:   tok.AdaReserve,
				TokenReserve: tok.TokenReserve,
				PoolAddress:  tok.PoolAddress,
				LowLiquidity: tok.LowLiquidity,
				IsNative:     tok.IsNative,
			})
			doc.Summary.TotalAdaReserve += tok.AdaReserve
			if tok.LowLiquidity {
				doc.Summary.LowLiquidity++
			}
		}
		err = writeJSON(outputPath, doc)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("token snapshot exported",
		zap.String("file", outputPath),
		zap.Int("tokens", len(snap.Tokens)),
		zap.String("format", string(opts.Format)))

	return outputPath, nil
}

// preparePath builds the timestamped output filename and makes sure
// the output directory exists.
func (e *Exporter) preparePath(prefix string, opts Options) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), opts.Format)
	return filepath.Join(opts.OutputDir, name), nil
}

func writeCSV(path string, headers []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func writeJSON(path string, doc any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
