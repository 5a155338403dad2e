package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"airvoice/internal/config"
	"airvoice/internal/ingest"
	"airvoice/internal/logger"
	"airvoice/internal/pipeline"
	"airvoice/internal/portal"
	"airvoice/internal/registry"
	"airvoice/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	ingestor := ingest.New(db, cfg)
	reg := registry.New(db)
	source := portal.NewSimulated(cfg, portal.StoreMetadata(db))
	processor := pipeline.NewService(db, source, log)

	cmd := os.Args[1]
	switch cmd {
	case "seed":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "path to a JSON array of invoice objects")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		result, err := seedFromFile(ingestor, *input)
		must(err)
		fmt.Printf("seeded %d invoices, %d passenger candidates\n", result.Seeded, len(result.Candidates))

	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "path to a JSON array of invoice objects")
		download := fs.Bool("download", true, "download invoices after import")
		parse := fs.Bool("parse", true, "parse invoices after download")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		seeded, err := seedFromFile(ingestor, *input)
		must(err)
		created, err := reg.BulkCreate(seeded.Candidates)
		must(err)
		fmt.Printf("imported %d new passengers (%d seeded invoices)\n", created.CreatedCount, seeded.Seeded)

		if *download {
			pnrs := make([]string, 0, len(seeded.Candidates))
			for _, c := range seeded.Candidates {
				pnrs = append(pnrs, c.PNR)
			}
			report := processor.ProcessBatch(context.Background(), pnrs, *parse)
			for _, item := range report.Items {
				line := fmt.Sprintf("  %s download=%s parse=%s", item.PNR, item.DownloadStatus, item.ParseStatus)
				if item.Err != "" {
					line += " error=" + item.Err
				}
				fmt.Println(line)
			}
			fmt.Printf("processed %d of %d PNRs\n", report.Processed, len(pnrs))
		}

	case "download":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pnr := fs.String("pnr", "", "passenger PNR")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pnr) == "" {
			must(fmt.Errorf("--pnr is required"))
		}
		result, err := processor.Download(context.Background(), *pnr)
		must(err)
		fmt.Printf("download pnr=%s status=%s\n", result.PNR, result.Status)

	case "parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pnr := fs.String("pnr", "", "passenger PNR")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pnr) == "" {
			must(fmt.Errorf("--pnr is required"))
		}
		result, err := processor.Parse(context.Background(), *pnr)
		must(err)
		fmt.Printf("parse pnr=%s status=%s\n", result.PNR, result.Status)

	case "status":
		passengers, err := db.ListPassengers()
		must(err)
		for _, p := range passengers {
			fmt.Printf("%s  %-30s download=%-10s parse=%s\n", p.PNR, p.Name, p.DownloadStatus, p.ParseStatus)
		}
		fmt.Printf("%d passengers\n", len(passengers))

	case "summary":
		invoices, err := db.ListInvoices()
		must(err)
		for _, row := range pipeline.Summarize(invoices, cfg.SummaryIncludeUnknown) {
			fmt.Printf("%-16s total=%.2f count=%d avg=%.2f\n", row.Airline, row.TotalAmount, row.InvoiceCount, row.AverageAmount)
		}

	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		outputPath := *out
		if strings.TrimSpace(outputPath) == "" {
			outputPath = filepath.Join(cfg.OutputDir, fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("20060102_150405")))
		}
		invoices, err := db.ListInvoices()
		must(err)
		summary := pipeline.Summarize(invoices, cfg.SummaryIncludeUnknown)
		must(pipeline.ExportReportXLSX(invoices, summary, outputPath))
		fmt.Printf("exported %d invoices to %s\n", len(invoices), outputPath)

	case "reset":
		must(db.Reset())
		fmt.Println("all passenger and invoice state cleared")

	default:
		usage()
		os.Exit(1)
	}
}

func seedFromFile(ingestor *ingest.Ingestor, path string) (ingest.Result, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return ingest.Result{}, err
	}
	records, err := ingest.DecodePayload(body)
	if err != nil {
		return ingest.Result{}, err
	}
	return ingestor.Ingest(records)
}

func usage() {
	fmt.Println("usage: airvoice <command>")
	fmt.Println("commands:")
	fmt.Println("  seed --input=invoices.json")
	fmt.Println("  import --input=invoices.json [--download=true] [--parse=true]")
	fmt.Println("  download --pnr=...")
	fmt.Println("  parse --pnr=...")
	fmt.Println("  status")
	fmt.Println("  summary")
	fmt.Println("  export:xlsx [--out=./out/result.xlsx]")
	fmt.Println("  reset")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
