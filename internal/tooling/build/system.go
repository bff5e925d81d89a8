package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/internal/correlate"
	"github.com/gomanifold/manifold/internal/docparse"
	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
	"github.com/gomanifold/manifold/pkg/registry"
)

// BuildOptions configures the build process
type BuildOptions struct {
	DocsPath     string
	SchemaDir    string
	ModelsDir    string
	RootPackage  string
	RegistryPath string
	Version      string
	Aliases      *endpoint.AliasSet
	Extension    string
	Exclude      []string
	Parallel     bool
	MaxJobs      int
	// Generator materializes models; required.
	Generator Generator
	// Cache is optional; nil regenerates every model.
	Cache        *Cache
	Logger       *zap.Logger
	ProgressFunc func(current, total int, message string)
}

// DefaultBuildOptions returns sensible defaults
func DefaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		DocsPath:     "api.md",
		SchemaDir:    "schema",
		ModelsDir:    "models",
		RootPackage:  "models",
		RegistryPath: "endpoints.json",
		Version:      endpoint.SupportedVersion,
		Extension:    correlate.DefaultExtension,
		Parallel:     false,
		MaxJobs:      runtime.NumCPU(),
	}
}

// BuildResult contains information about the build
type BuildResult struct {
	Success  bool
	Registry *registry.Registry
	Report   *Report
	Duration time.Duration
}

// System coordinates one pipeline run: parse the documentation, correlate
// the schema tree, generate models and write the registry.
// Thread-safety: a System may run Build repeatedly but not concurrently;
// the registry lock guards against concurrent processes.
type System struct {
	options    *BuildOptions
	parser     *docparse.Parser
	correlator *correlate.Correlator
	logger     *zap.Logger
}

// NewSystem creates a new build system
func NewSystem(opts *BuildOptions) (*System, error) {
	if opts == nil {
		opts = DefaultBuildOptions()
	}
	if opts.Generator == nil {
		return nil, mferrors.NewInvalidConfig("build requires a code generator")
	}
	if opts.RegistryPath == "" {
		return nil, mferrors.NewInvalidConfig("build requires a registry path")
	}
	if opts.Version == "" {
		opts.Version = endpoint.SupportedVersion
	}
	if opts.RootPackage == "" {
		opts.RootPackage = "models"
	}
	if opts.MaxJobs < 1 {
		opts.MaxJobs = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &System{
		options: opts,
		parser: docparse.New(
			docparse.WithVersion(opts.Version),
			docparse.WithLogger(logger),
		),
		correlator: correlate.New(correlate.Options{
			Version:   opts.Version,
			Aliases:   opts.Aliases,
			Extension: opts.Extension,
			Exclude:   opts.Exclude,
			Logger:    logger,
		}),
		logger: logger,
	}, nil
}

// job is one model to generate, in registry key order.
type job struct {
	Job
	loc      Locator
	artifact string
}

// outcome is the result of one job.
type outcome struct {
	err    error
	cached bool
}

// Build performs a full pipeline run. Missing sources and registry I/O
// failures are returned as errors; everything else is collected in the
// report and the run continues.
func (s *System) Build(ctx context.Context) (*BuildResult, error) {
	startTime := time.Now()
	opts := s.options

	lock, err := AcquireLock(opts.RegistryPath)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	report := &Report{RegistryPath: opts.RegistryPath}

	docs, err := s.parser.ParseFile(opts.DocsPath)
	if err != nil {
		return nil, err
	}
	report.Deprecated = docs.Deprecated

	excluded := s.duplicateConflicts(docs, report)
	documented := make(map[string]string, len(docs.Endpoints))
	for key, ep := range docs.Endpoints {
		documented[key] = ep.Method
	}
	report.Documented = len(documented)

	correlated, err := s.correlator.Correlate(opts.SchemaDir, documented)
	if err != nil {
		return nil, err
	}
	report.Add(correlated.Issues...)
	report.Matched = len(correlated.Matches)
	for _, a := range correlated.Unmatched {
		report.Unmatched = append(report.Unmatched, a.RelPath)
	}
	for _, key := range correlated.Conflicted {
		excluded[key] = true
	}

	records := make(map[string]registry.Record, len(documented))
	for key, method := range documented {
		if !excluded[key] {
			records[key] = registry.Record{Method: method}
		}
	}

	jobs := s.planJobs(correlated.Matches, records, report)
	outcomes := s.runJobs(ctx, jobs)

	for i, j := range jobs {
		out := outcomes[i]
		if out.err != nil {
			report.Failed++
			genErr := mferrors.NewGenerationFailed(j.Endpoint, j.artifact, out.err)
			report.Add(genErr)
			s.logger.Warn("model generation failed",
				zap.String("endpoint", j.Endpoint),
				zap.String("artifact", j.artifact),
				zap.Error(out.err),
			)
			continue
		}
		if out.cached {
			report.Cached++
		} else {
			report.Generated++
		}
		rec := records[j.Endpoint]
		rec.ModuleLocator = j.loc.ModuleLocator
		rec.ModelIdentifier = j.loc.ModelIdentifier
		rec.SchemaLocation = j.artifact
		records[j.Endpoint] = rec
	}

	if opts.Cache != nil {
		if err := opts.Cache.Flush(); err != nil {
			s.logger.Warn("failed to persist build cache", zap.Error(err))
		}
	}

	reg, err := registry.New(records)
	if err != nil {
		return nil, fmt.Errorf("assemble registry: %w", err)
	}
	if err := registry.Save(opts.RegistryPath, reg); err != nil {
		return nil, err
	}

	report.Excluded = sortedKeys(excluded)
	report.Registered = reg.Len()
	report.WithModel = len(reg.Entries(registry.Filter{WithModel: true}))
	report.Duration = time.Since(startTime)

	s.logger.Info("registry written",
		zap.String("path", opts.RegistryPath),
		zap.Int("endpoints", report.Registered),
		zap.Int("models", report.WithModel),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)

	return &BuildResult{
		Success:  !report.HasErrors(),
		Registry: reg,
		Report:   report,
		Duration: report.Duration,
	}, nil
}

// duplicateConflicts reports documentation duplicates. A path declared with
// two different methods is excluded from the registry; a repeated heading
// with the same method is only a warning.
func (s *System) duplicateConflicts(docs *docparse.Result, report *Report) map[string]bool {
	excluded := make(map[string]bool)
	for _, dup := range docs.Duplicates {
		if dup.Divergent() {
			if !excluded[dup.Path] {
				report.Add(mferrors.NewDivergentMethod(dup.Path, dup.Previous.Method, dup.Current.Method))
			}
			excluded[dup.Path] = true
			continue
		}
		report.Add(mferrors.NewDuplicateHeading(dup.Path, dup.Current.Method))
	}
	return excluded
}

// planJobs derives locators in registry key order. Artifacts whose locator
// cannot be derived, or collides with an earlier one, fail here without
// running the generator.
func (s *System) planJobs(matches map[string]correlate.Match, records map[string]registry.Record, report *Report) []job {
	opts := s.options
	keys := make([]string, 0, len(matches))
	for key := range matches {
		if _, ok := records[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	kind := strings.TrimPrefix(opts.Extension, ".")
	if kind == "" {
		kind = strings.TrimPrefix(correlate.DefaultExtension, ".")
	}

	owners := make(map[string]string, len(keys))
	jobs := make([]job, 0, len(keys))
	for _, key := range keys {
		m := matches[key]
		loc, err := Locate(m.Artifact.RelPath)
		if err != nil {
			report.Failed++
			var locErr *mferrors.Error
			if errors.As(err, &locErr) {
				report.Add(locErr.WithEndpoint(key))
			} else {
				report.Add(mferrors.NewGenerationFailed(key, m.Artifact.RelPath, err))
			}
			continue
		}
		if prev, taken := owners[loc.ModuleLocator]; taken {
			report.Failed++
			report.Add(mferrors.NewInvalidLocator(m.Artifact.RelPath,
				fmt.Sprintf("module %s already generated for %s", loc.ModuleLocator, prev)).WithEndpoint(key))
			continue
		}
		owners[loc.ModuleLocator] = key

		jobs = append(jobs, job{
			Job: Job{
				Endpoint: key,
				Input:    m.Artifact.Path,
				Output:   loc.OutputFile(opts.ModelsDir),
				Package:  loc.Package(opts.RootPackage),
				Model:    loc.ModelIdentifier,
				Kind:     kind,
			},
			loc:      loc,
			artifact: m.Artifact.RelPath,
		})
	}
	return jobs
}

// runJobs returns one outcome per job, index-aligned, so merging stays in
// key order regardless of completion order.
func (s *System) runJobs(ctx context.Context, jobs []job) []outcome {
	outcomes := make([]outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	var completed int
	var mu sync.Mutex
	progress := func(j job) {
		if s.options.ProgressFunc == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		completed++
		s.options.ProgressFunc(completed, len(jobs), fmt.Sprintf("Generating %s", j.loc.ModuleLocator))
	}

	if !s.options.Parallel || s.options.MaxJobs < 2 {
		for i, j := range jobs {
			outcomes[i] = s.generate(ctx, j)
			progress(j)
		}
		return outcomes
	}

	indexes := make(chan int, len(jobs))
	for i := range jobs {
		indexes <- i
	}
	close(indexes)

	workers := s.options.MaxJobs
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = s.generate(ctx, jobs[i])
				progress(jobs[i])
			}
		}()
	}
	wg.Wait()

	return outcomes
}

// generate materializes one model. Package markers are written even on a
// cache hit so a deleted doc.go is restored.
func (s *System) generate(ctx context.Context, j job) outcome {
	opts := s.options

	if err := EnsurePackageMarkers(j.loc, opts.ModelsDir, opts.RootPackage); err != nil {
		return outcome{err: err}
	}

	fingerprint := opts.Generator.Fingerprint(j.Job)
	if opts.Cache != nil && opts.Cache.Fresh(ctx, j.Job, fingerprint) {
		s.logger.Debug("model up to date", zap.String("output", j.Output))
		return outcome{cached: true}
	}

	if err := opts.Generator.Generate(ctx, j.Job); err != nil {
		return outcome{err: err}
	}
	if _, err := os.Stat(j.Output); err != nil {
		return outcome{err: fmt.Errorf("generator did not produce %s: %w", j.Output, err)}
	}

	if opts.Cache != nil {
		if err := opts.Cache.Record(ctx, j.Job, fingerprint); err != nil {
			s.logger.Warn("failed to cache model", zap.String("output", j.Output), zap.Error(err))
		}
	}

	s.logger.Debug("model generated",
		zap.String("endpoint", j.Endpoint),
		zap.String("output", j.Output),
	)
	return outcome{}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
