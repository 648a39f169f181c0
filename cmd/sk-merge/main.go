// sk-merge enriches a CSV table of publications with affiliation, country,
// grid and funding information from a JSON export, matched by DOI. Only empty
// cells are filled.
//
// $ sk-merge -csv records.csv -json records.json -output combined.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/miku/skmerge"
	"github.com/miku/skmerge/config"
	"github.com/miku/skmerge/index"
	"github.com/miku/skmerge/merge"
	"github.com/miku/skmerge/remote"
	"github.com/miku/skmerge/xio"
	log "github.com/sirupsen/logrus"
)

var (
	csvPath     = flag.String("csv", "", "path of the csv file to be processed")
	jsonPath    = flag.String("json", "", "path or http(s) URL of the json file to enrich data")
	outputPath  = flag.String("output", "", "csv file for the aggregated information (default "+config.DefaultOutputPath+")")
	byName      = flag.Bool("by-name", false, "find columns by header name instead of position")
	configFile  = flag.String("config", "", "config file (default "+config.DefaultFile()+", if it exists)")
	verbose     = flag.Bool("v", false, "verbose output")
	showVersion = flag.Bool("version", false, "show version")
)

var help = `sk-merge fills empty affiliation and funding columns from a JSON export 🔗

The doi is expected in the second column, the abstract in the fifth and the
last five columns are: affiliation, author_countries, grid_ids,
funding_organizations, funding_countries. Existing values are never
overwritten. Files ending in .gz or .zst are read and written compressed.

Examples:

    $ sk-merge -csv records.csv -json records.json -output combined.csv
    $ sk-merge -csv records.csv.gz -json https://example.org/export.json

Usage:

`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(skmerge.Version)
		os.Exit(0)
	}
	cfg := config.Default()
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile, false); err != nil {
			log.Fatal(err)
		}
	} else if err := cfg.LoadFile(config.DefaultFile(), true); err != nil {
		log.Fatal(err)
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}
	if *jsonPath != "" {
		cfg.JSONPath = *jsonPath
	}
	if *outputPath != "" {
		cfg.OutputPath = *outputPath
	}
	if *byName {
		cfg.ByName = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.SetOutput(os.Stderr)
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	summary, err := run(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := summary.WriteTo(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run loads the supplementary data, then streams the table from input to
// output. All files are closed before run returns.
func run(cfg *config.Config) (summary merge.Summary, err error) {
	logger := log.StandardLogger()
	idx, err := loadIndex(cfg, logger)
	if err != nil {
		return summary, err
	}
	logger.WithFields(log.Fields{
		"records":    idx.Records(),
		"dois":       idx.Len(),
		"skipped":    idx.Skipped(),
		"duplicates": idx.Duplicates(),
	}).Debug("loaded supplementary data")
	r, err := xio.OpenFile(cfg.CSVPath)
	if err != nil {
		return summary, err
	}
	defer r.Close()
	w, err := xio.CreateFile(cfg.OutputPath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	m := merge.New(idx,
		merge.WithLayout(cfg.LayoutFunc()),
		merge.WithLogger(logger))
	summary, err = m.Run(r, w)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", cfg.CSVPath, err)
	}
	return summary, nil
}

// loadIndex reads the supplementary data from a local file or URL.
func loadIndex(cfg *config.Config, logger log.FieldLogger) (*index.Index, error) {
	filename := cfg.JSONPath
	if remote.IsURL(filename) {
		fetcher, err := remote.NewFetcher()
		if err != nil {
			return nil, err
		}
		fetcher.CacheTTL = cfg.CacheTTL
		fetcher.MaxRetries = cfg.MaxRetries
		fetcher.Logger = logger
		if filename, err = fetcher.Fetch(cfg.JSONPath); err != nil {
			return nil, err
		}
	}
	f, err := xio.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := index.Load(f, index.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.JSONPath, err)
	}
	return idx, nil
}
