package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spacesedan/newsmood/internal/logging"
	"github.com/spacesedan/newsmood/internal/report"
)

func main() {
	input := flag.String("input", filepath.Join("data/processed/combined_analysis", report.ReportFilename), "report written by analyze")
	write := flag.Bool("write", false, "recompute statistics and rewrite the report and summary next to it")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.InitLogger(logging.ParseLevel(*level))

	if err := run(*input, *write); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(input string, write bool) error {
	loaded, err := report.Load(input)
	if err != nil {
		return err
	}
	r := report.WithStatistics(loaded)

	fmt.Print(report.Summary(r))
	if insights := report.Insights(r); len(insights) > 0 {
		fmt.Println()
		fmt.Println("KEY INSIGHTS:")
		for _, line := range insights {
			fmt.Printf("  - %s\n", line)
		}
	}

	if !write {
		return nil
	}
	if err := report.Save(input, r); err != nil {
		return err
	}
	return report.WriteSummary(filepath.Join(filepath.Dir(input), report.SummaryFilename), r)
}
