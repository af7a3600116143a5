// Command formalign registers a scanned form against a reference
// template image and writes the matching sub-region of the scan,
// warped back to the template's geometry.
//
// Exit codes: 0 on success, 1 when the template was not found in the
// scan, 2 on configuration or IO errors.
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jszwec/csvutil"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"formalign/internal/imaging"
	"formalign/internal/registration"
	"formalign/internal/version"
	"formalign/pkg/geometry"
)

var opts struct {
	templatePath string
	scanPath     string
	outputPath   string
	region       string
	scale        float64
	paramsPath   string
	pointsPath   string
	seed         int64
	jobs         int
	verbose      bool
	quiet        bool
}

var rootCmd = &cobra.Command{
	Use:           "formalign",
	Short:         "Align scanned forms against a reference template",
	Long:          "Locates a reference template inside a scanned page and extracts the corresponding region, warped to the template geometry, so form fields can be read at fixed coordinates.",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&opts.templatePath, "template", "t", "", "Path to the reference template image")
	rootCmd.Flags().StringVarP(&opts.scanPath, "input", "i", "", "Path to the scanned page")
	rootCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Path for the aligned output image")
	rootCmd.Flags().StringVar(&opts.region, "roi", "", "Restrict analysis to a region of the scan, WxH+X+Y")
	rootCmd.Flags().Float64Var(&opts.scale, "scale", 1.0, "Uniform pre-scale applied to the scan before registration")
	rootCmd.Flags().StringVar(&opts.paramsPath, "params", "", "TOML file overriding registration parameters")
	rootCmd.Flags().StringVar(&opts.pointsPath, "points", "", "Write inlier correspondences to this CSV file")
	rootCmd.Flags().Int64Var(&opts.seed, "seed", 0, "RANSAC sampling seed")
	rootCmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "Matcher worker count (0 = one per CPU)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.MarkFlagRequired("template")
	rootCmd.MarkFlagRequired("input")
	rootCmd.MarkFlagRequired("output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if registration.IsNoMatch(err) {
			logrus.Warnf("%v", err)
			os.Exit(1)
		}
		logrus.Errorf("%v", err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logrus.SetLevel(logrus.InfoLevel)
	if opts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if opts.quiet {
		logrus.SetLevel(logrus.WarnLevel)
	}

	cfg := registration.DefaultConfig()
	if opts.paramsPath != "" {
		if _, err := toml.DecodeFile(opts.paramsPath, &cfg); err != nil {
			return fmt.Errorf("failed to read params file: %w", err)
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.seed
	}
	cfg.Workers = opts.jobs
	if err := cfg.Validate(); err != nil {
		return err
	}

	template, err := imaging.Load(opts.templatePath)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	scan, err := imaging.Load(opts.scanPath)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	logrus.Debugf("template %dx%d, scan %dx%d", template.Width, template.Height, scan.Width, scan.Height)

	if opts.region != "" {
		region, err := parseRegion(opts.region)
		if err != nil {
			return err
		}
		scan, err = imaging.Crop(scan, region)
		if err != nil {
			return err
		}
		logrus.Debugf("cropped scan to %dx%d+%d+%d", region.Width, region.Height, region.X, region.Y)
	}
	if opts.scale != 1.0 {
		scan, err = imaging.Rescale(scan, opts.scale)
		if err != nil {
			return err
		}
		logrus.Debugf("rescaled scan by %g to %dx%d", opts.scale, scan.Width, scan.Height)
	}

	var reporter *progressReporter
	if !opts.quiet {
		reporter = &progressReporter{}
		cfg.Progress = reporter.update
	}

	result, err := registration.Register(template, scan, cfg)
	if reporter != nil {
		reporter.close()
	}
	if err != nil {
		return err
	}

	c := result.Model.Components
	logrus.Infof("model: translation=(%.2f, %.2f) rotation=%.4f rad shear=%.4f scale=(%.4f, %.4f)",
		c.TX, c.TY, c.Rotation, c.Shear, c.ScaleX, c.ScaleY)
	logrus.Infof("consensus: %d inliers of %d correspondences", len(result.Inliers), result.Matches)

	if opts.pointsPath != "" {
		if err := writeInlierCSV(opts.pointsPath, result.Inliers); err != nil {
			return err
		}
		logrus.Debugf("wrote %d inliers to %s", len(result.Inliers), opts.pointsPath)
	}

	if err := imaging.Save(result.Aligned, opts.outputPath); err != nil {
		return err
	}
	logrus.Infof("wrote aligned image to %s", opts.outputPath)
	return nil
}

// parseRegion parses an X-geometry style region spec, e.g. 800x600+20+40.
func parseRegion(s string) (geometry.RectInt, error) {
	var w, h, x, y int
	if n, err := fmt.Sscanf(s, "%dx%d+%d+%d", &w, &h, &x, &y); err != nil || n != 4 {
		return geometry.RectInt{}, fmt.Errorf("malformed region %q, want WxH+X+Y", s)
	}
	return geometry.RectInt{X: x, Y: y, Width: w, Height: h}, nil
}

type inlierRecord struct {
	TemplateRow int     `csv:"template_row"`
	TemplateCol int     `csv:"template_col"`
	ScanRow     int     `csv:"scan_row"`
	ScanCol     int     `csv:"scan_col"`
	Score       float64 `csv:"score"`
}

func writeInlierCSV(path string, inliers []registration.Correspondence) error {
	records := make([]inlierRecord, len(inliers))
	for i, corr := range inliers {
		records[i] = inlierRecord{
			TemplateRow: corr.Template.Row,
			TemplateCol: corr.Template.Col,
			ScanRow:     corr.Image.Row,
			ScanCol:     corr.Image.Col,
			Score:       corr.Score,
		}
	}
	data, err := csvutil.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write points: %w", err)
	}
	return nil
}

// progressReporter renders one progress bar per pipeline stage. The
// match stage reports from multiple goroutines, so updates go through
// a mutex.
type progressReporter struct {
	mu    sync.Mutex
	stage registration.Stage
	bar   *progressbar.ProgressBar
}

func (p *progressReporter) update(stage registration.Stage, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || stage != p.stage {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(stage.String()),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Set(done)
}

func (p *progressReporter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
