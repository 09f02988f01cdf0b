// Command report runs the crime regression report or the credit
// classification report and prints the result tables.
//
//	report crime -data uscrime.txt [-config crime.yaml] [-seed 1] [-out plots] [-log-level info]
//	report credit -data credit_card_data-headers.txt [...]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"github.com/YuminosukeSato/statlab/report"
	"github.com/fatih/color"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  report crime  -data uscrime.txt [flags]")
	fmt.Fprintln(w, "  report credit -data credit_card_data-headers.txt [flags]")
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errors.New("missing sub-command")
	}

	name := args[0]
	var base report.Config
	switch name {
	case "crime":
		base = report.DefaultCrimeConfig()
	case "credit":
		base = report.DefaultCreditConfig()
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return nil
	default:
		usage(os.Stderr)
		return errors.Newf("unknown sub-command %q", name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	dataPath := fs.String("data", "", "path to the whitespace-delimited data file (required)")
	configPath := fs.String("config", "", "YAML config overriding the report defaults")
	seed := fs.Uint64("seed", base.Seed, "random seed for the split and cross-validation")
	outDir := fs.String("out", "", "directory for PNG plots (none when empty)")
	logLevel := fs.String("log-level", "", "debug|info|warn|error (default from config)")
	parallel := fs.Int("parallel", base.Parallel, "grid points evaluated concurrently (<0 uses every CPU)")
	noColor := fs.Bool("no-color", false, "disable colored output")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *dataPath == "" {
		fs.Usage()
		return errors.New("-data is required")
	}

	cfg := base
	if *configPath != "" {
		loaded, err := report.LoadConfig(*configPath, base)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// explicit flags win over the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "parallel":
			cfg.Parallel = *parallel
		}
	})
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("cmd")

	table, err := dataset.Load(*dataPath)
	if err != nil {
		logger.Error("load failed", "error", err, log.PathKey, *dataPath)
		return err
	}

	printer := report.NewPrinter(stdout, !*noColor && !color.NoColor)
	switch name {
	case "crime":
		res, err := report.RunCrime(table, cfg, logger)
		if err != nil {
			logger.Error("crime report failed", "error", err)
			return err
		}
		printer.Crime(res)
	case "credit":
		res, err := report.RunCredit(table, cfg, logger)
		if err != nil {
			logger.Error("credit report failed", "error", err)
			return err
		}
		printer.Credit(res)
	}
	return nil
}
