// Command treeseg segments a forest-plot point cloud into individual trees.
//
// It reads whitespace-separated "x y z" records, classifies ground, detects
// tree tops on a canopy height raster and grows one crown per top. The
// per-point tree ids and the tree tops are written as text files; a canopy
// plot, an HTML crown view and a run database are optional.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/banshee-data/treeseg/internal/config"
	"github.com/banshee-data/treeseg/internal/forest/export"
	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/pipeline"
	"github.com/banshee-data/treeseg/internal/forest/report"
	"github.com/banshee-data/treeseg/internal/forest/storage/sqlite"
	"github.com/banshee-data/treeseg/internal/forest/synthetic"
	"github.com/banshee-data/treeseg/internal/version"
)

// Config holds the command-line configuration.
type Config struct {
	InputFile   string
	OutputFile  string
	TreeTopFile string
	ConfigFile  string
	DBPath      string
	PlotFile    string
	HTMLFile    string
	GenSample   string // "", "ring" or "dome"
	Verbose     bool
	Trace       bool
	ShowVersion bool

	// Overrides holds only the parameters set explicitly on the command line.
	Overrides *config.SegmentationConfig
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	if cfg.ShowVersion {
		fmt.Println("treeseg", version.String())
		return
	}

	setLogWriters(cfg, os.Stderr)

	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("treeseg: %v", err)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{}
	defaults := config.DefaultSegmentationConfig()

	fs.StringVar(&cfg.InputFile, "input", "input.txt", "Point cloud file with one \"x y z\" record per line")
	fs.StringVar(&cfg.OutputFile, "output", "output.txt", "Segmentation output (x y z treeId per non-ground point)")
	fs.StringVar(&cfg.TreeTopFile, "treetops", "tree_tops.txt", "Tree top output (x y z index per tree)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Segmentation config JSON (defaults to built-in values)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database to record the run in (optional)")
	fs.StringVar(&cfg.PlotFile, "plot", "", "Canopy height PNG with tree tops (optional)")
	fs.StringVar(&cfg.HTMLFile, "html", "", "HTML scatter of segmented crowns (optional)")
	fs.StringVar(&cfg.GenSample, "gen-sample", "", "Write a synthetic sample ('ring' or 'dome') to -input before running")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log per-stage diagnostics")
	fs.BoolVar(&cfg.Trace, "trace", false, "Log per-cell and per-round detail")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	cellSize := fs.Float64("cell-size", defaults.GetCellSize(), "Raster cell size in metres")
	minTreeHeight := fs.Float64("min-tree-height", defaults.GetMinTreeHeight(), "Lowest cell height that can hold a tree top")
	windowSize := fs.Int("window-size", defaults.GetWindowSize(), "Local maximum half-window in cells")
	maxCrownRadius := fs.Float64("max-crown-radius", defaults.GetMaxCrownRadius(), "Largest horizontal crown radius in metres")
	growthDistance := fs.Float64("growth-distance", defaults.GetGrowthDistance(), "Largest 3-D growth step in metres")
	growthAngle := fs.Float64("growth-angle", defaults.GetGrowthAngleDeg(), "Steepest upward growth step in degrees")
	maxIterations := fs.Int("max-iterations", defaults.GetMaxIterations(), "Flood-fill round cap (0 disables flood fill)")
	groundThreshold := fs.Float64("ground-threshold", defaults.GetGroundThreshold(), "Height above the lowest point classed as ground")
	spatialIndex := fs.Bool("spatial-index", defaults.GetUseSpatialIndex(), "Use an R-tree for neighbor queries")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: treeseg [options]\n\n")
		fmt.Fprintf(out, "Single-tree segmentation of forest point clouds.\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  treeseg -input plot1.txt -output plot1_seg.txt -treetops plot1_tops.txt\n")
		fmt.Fprintf(out, "  treeseg -config config/segmentation.example.json -input plot1.txt -db runs.db\n")
		fmt.Fprintf(out, "  treeseg -gen-sample dome -input sample.txt -plot canopy.png -html crowns.html\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch cfg.GenSample {
	case "", "ring", "dome":
	default:
		return cfg, fmt.Errorf("unknown sample %q (want ring or dome)", cfg.GenSample)
	}

	// Only flags given on the command line override the config file.
	cfg.Overrides = config.EmptySegmentationConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cell-size":
			cfg.Overrides.CellSize = cellSize
		case "min-tree-height":
			cfg.Overrides.MinTreeHeight = minTreeHeight
		case "window-size":
			cfg.Overrides.WindowSize = windowSize
		case "max-crown-radius":
			cfg.Overrides.MaxCrownRadius = maxCrownRadius
		case "growth-distance":
			cfg.Overrides.GrowthDistance = growthDistance
		case "growth-angle":
			cfg.Overrides.GrowthAngleDeg = growthAngle
		case "max-iterations":
			cfg.Overrides.MaxIterations = maxIterations
		case "ground-threshold":
			cfg.Overrides.GroundThreshold = groundThreshold
		case "spatial-index":
			cfg.Overrides.UseSpatialIndex = spatialIndex
		}
	})
	return cfg, nil
}

// setLogWriters routes ops to w always, diag with -verbose and trace with -trace.
func setLogWriters(cfg Config, w io.Writer) {
	writers := pipeline.LogWriters{Ops: w}
	if cfg.Verbose {
		writers.Diag = w
	}
	if cfg.Trace {
		writers.Trace = w
	}
	pipeline.SetLogWriters(writers)
	sqlite.SetLogWriters(writers.Ops, writers.Diag, writers.Trace)
}

// loadSettings resolves the config file and the command-line overrides.
func loadSettings(cfg Config) (*config.SegmentationConfig, error) {
	settings := config.DefaultSegmentationConfig()
	if cfg.ConfigFile != "" {
		loaded, err := config.LoadSegmentationConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	settings.Merge(cfg.Overrides)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return settings, nil
}

func writeSample(kind, path string) error {
	var sample *synthetic.Sample
	switch kind {
	case "ring":
		sample = synthetic.RingCrowns()
	case "dome":
		sample = synthetic.DomeCrowns(synthetic.DefaultDomeOptions())
	default:
		return fmt.Errorf("unknown sample %q", kind)
	}
	if err := export.SaveXYZ(path, sample.Positions); err != nil {
		return err
	}
	log.Printf("wrote %s sample (%d points) to %s", kind, len(sample.Positions), path)
	return nil
}

// run executes one segmentation. Input and parameter failures abort before
// any stage runs. Output failures are logged and joined into the returned
// error after every output has been attempted.
func run(cfg Config, stdout io.Writer) error {
	start := time.Now()

	settings, err := loadSettings(cfg)
	if err != nil {
		return err
	}

	if cfg.GenSample != "" {
		if err := writeSample(cfg.GenSample, cfg.InputFile); err != nil {
			return err
		}
	}

	store, err := l1points.LoadXYZFile(cfg.InputFile)
	if err != nil {
		return err
	}
	log.Printf("loaded %d points from %s", store.Len(), cfg.InputFile)

	res, err := pipeline.Run(store, pipeline.ConfigFromSettings(settings))
	if err != nil {
		return err
	}

	var errs []error
	output := func(what string, err error) {
		if err != nil {
			log.Printf("failed to write %s: %v", what, err)
			errs = append(errs, err)
		}
	}

	output("segmentation", export.SaveSegmentation(cfg.OutputFile, store))
	output("tree tops", export.SaveTreeTops(cfg.TreeTopFile, res.TreeTops))

	if cfg.PlotFile != "" {
		if res.Raster == nil {
			log.Printf("no canopy raster; skipping %s", cfg.PlotFile)
		} else {
			output("canopy plot", report.PlotCanopy(res.Raster, res.TreeTops, cfg.PlotFile))
		}
	}
	if cfg.HTMLFile != "" {
		output("crown view", writeHTML(cfg.HTMLFile, store, res))
	}
	if cfg.DBPath != "" {
		output("run record", recordRun(cfg.DBPath, cfg.InputFile, res))
	}

	if len(res.Crowns) > 0 {
		if err := report.WriteSummaryTable(stdout, res.Crowns); err != nil {
			errs = append(errs, err)
		}
	}
	fmt.Fprintf(stdout, "Trees: %d, unassigned points: %d\n", len(res.TreeTops), res.Unassigned)
	fmt.Fprintf(stdout, "Elapsed: %v\n", time.Since(start).Round(time.Millisecond))

	return errors.Join(errs...)
}

func writeHTML(path string, store *l1points.PointStore, res *pipeline.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrOutputUnwritable, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %w", export.ErrOutputUnwritable, path, cerr)
		}
	}()
	if err := report.RenderCrownsHTML(f, store, res.TreeTops); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrOutputUnwritable, path, err)
	}
	return nil
}

func recordRun(dbPath, inputPath string, res *pipeline.Result) error {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := sqlite.NewRunStore(db.DB).SaveResult(res, inputPath)
	if err != nil {
		return err
	}
	log.Printf("recorded run %s in %s", run.RunID, dbPath)
	return nil
}
