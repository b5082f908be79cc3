package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/parse"
)

// BatchProcessor parses saved method pages into a schema
type BatchProcessor struct {
	scanner *DirectoryScanner
	options *BatchOptions
	log     *slog.Logger
}

// BatchOptions configures batch processing behavior
type BatchOptions struct {
	MaxWorkers     int    // Maximum number of concurrent workers
	OutputDir      string // Output directory for the report
	GenerateReport bool   // Write batch_report.json to OutputDir
	BaseURL        string // Base for relative links in saved listings
	Scanner        *ScannerOptions
	Logger         *slog.Logger
	Observer       parse.Observer
}

// BatchResult represents the result of processing a single file
type BatchResult struct {
	FilePath    string                `json:"file_path"`
	Section     string                `json:"section"`
	Success     bool                  `json:"success"`
	Error       string                `json:"error,omitempty"`
	Method      *models.MethodDetails `json:"-"`
	Parameters  int                   `json:"parameters"`
	ProcessTime time.Duration         `json:"process_time"`
}

// BatchReport represents the overall batch processing report
type BatchReport struct {
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	TotalFiles   int           `json:"total_files"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	SkippedCount int           `json:"skipped_count"`
	TotalTime    time.Duration `json:"total_time"`
	Results      []BatchResult `json:"results"`
	Summary      BatchSummary  `json:"summary"`
}

// BatchSummary provides summary statistics
type BatchSummary struct {
	Sections    []string `json:"sections"`
	ErrorTypes  []string `json:"error_types"`
	AverageTime float64  `json:"average_time_ms"`
	FastestFile string   `json:"fastest_file"`
	SlowestFile string   `json:"slowest_file"`
	TotalParams int      `json:"total_parameters"`
}

type job struct {
	index   int
	path    string
	section string
	doc     models.MethodDoc
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(options *BatchOptions) *BatchProcessor {
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = 4
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}

	return &BatchProcessor{
		scanner: NewDirectoryScanner(options.Scanner),
		options: options,
		log:     log.With("component", "batch"),
	}
}

// ProcessDirectory parses every method page below dirPath. Each first-level directory is a section.
func (bp *BatchProcessor) ProcessDirectory(ctx context.Context, dirPath string) (*models.Schema, *BatchReport, error) {
	startTime := time.Now()

	scan, err := bp.scanner.ScanDirectory(dirPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find HTML files: %w", err)
	}
	bp.log.Info("scanned snapshots", "sections", len(scan.Sections), "files", len(scan.HTMLFiles))

	var jobs []job
	for _, section := range scan.SectionNames() {
		docs := bp.listing(scan.References[section], section)
		for _, file := range scan.Sections[section] {
			jobs = append(jobs, job{index: len(jobs), path: file, section: section, doc: docFor(docs, file)})
		}
	}

	results := bp.processFiles(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	schema := models.NewSchema()
	for _, section := range scan.SectionNames() {
		schema.Docs[section] = make([]*models.MethodDetails, 0, len(scan.Sections[section]))
	}
	for _, r := range results {
		if r.Success {
			schema.Docs[r.Section] = append(schema.Docs[r.Section], r.Method)
		}
	}

	report := bp.generateReport(startTime, results)
	report.SkippedCount = len(scan.SkippedFiles)
	if bp.options.GenerateReport {
		if err := bp.saveReport(report); err != nil {
			return nil, nil, fmt.Errorf("failed to save report: %w", err)
		}
	}
	return schema, report, nil
}

// listing parses a saved section listing and indexes its rows by the last segment of the doc link
func (bp *BatchProcessor) listing(file, section string) map[string]models.MethodDoc {
	if file == "" {
		return nil
	}
	markup, err := os.ReadFile(file)
	if err != nil {
		bp.log.Warn("failed to read listing", "file", file, "error", err)
		return nil
	}
	docs, err := parse.NewParser(parse.WithLogger(bp.log)).ParseReference(string(markup), section, bp.options.BaseURL)
	if err != nil {
		bp.log.Warn("failed to parse listing", "file", file, "error", err)
		return nil
	}
	index := make(map[string]models.MethodDoc, len(docs))
	for _, d := range docs {
		index[path.Base(strings.TrimRight(d.DocLink, "./"))] = d
	}
	return index
}

func docFor(docs map[string]models.MethodDoc, file string) models.MethodDoc {
	slug := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if d, ok := docs[slug]; ok {
		return d
	}
	return models.MethodDoc{DocLink: filepath.ToSlash(file)}
}

// processFiles processes files concurrently; results keep the order of jobs
func (bp *BatchProcessor) processFiles(ctx context.Context, jobs []job) []BatchResult {
	jobChan := make(chan job, len(jobs))
	results := make([]BatchResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < bp.options.MaxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			bp.worker(ctx, workerID, jobChan, results)
		}(i)
	}

	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)
	wg.Wait()

	return results
}

// worker owns its parser; each job writes only its own result slot
func (bp *BatchProcessor) worker(ctx context.Context, workerID int, jobChan <-chan job, results []BatchResult) {
	opts := []parse.Option{parse.WithLogger(bp.log.With("worker", workerID))}
	if bp.options.Observer != nil {
		opts = append(opts, parse.WithObserver(bp.options.Observer))
	}
	parser := parse.NewParser(opts...)

	for j := range jobChan {
		if ctx.Err() != nil {
			results[j.index] = BatchResult{FilePath: j.path, Section: j.section, Error: ctx.Err().Error()}
			continue
		}
		results[j.index] = bp.processFile(parser, j)
	}
}

// processFile processes a single HTML file
func (bp *BatchProcessor) processFile(parser *parse.Parser, j job) (result BatchResult) {
	startTime := time.Now()
	result = BatchResult{
		FilePath: j.path,
		Section:  j.section,
	}

	defer func() {
		result.ProcessTime = time.Since(startTime)
	}()

	htmlContent, err := os.ReadFile(j.path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	details, err := parser.ParseHTML(string(htmlContent), j.doc)
	if err != nil {
		bp.log.Error("failed to parse method page", "file", j.path, "error", err)
		result.Error = fmt.Sprintf("parsing failed: %v", err)
		return result
	}

	result.Method = details
	result.Parameters = len(details.Attributes(""))
	result.Success = true
	return result
}

// generateReport creates a comprehensive processing report
func (bp *BatchProcessor) generateReport(startTime time.Time, results []BatchResult) *BatchReport {
	endTime := time.Now()

	report := &BatchReport{
		StartTime:  startTime,
		EndTime:    endTime,
		TotalFiles: len(results),
		TotalTime:  endTime.Sub(startTime),
		Results:    results,
	}

	var totalParams int
	var errorTypes []string
	var fastestFile, slowestFile string
	var fastestTime, slowestTime, totalProcessTime time.Duration
	sections := map[string]bool{}

	for _, result := range results {
		if result.Success {
			report.SuccessCount++
			totalParams += result.Parameters
			if !sections[result.Section] {
				sections[result.Section] = true
				report.Summary.Sections = append(report.Summary.Sections, result.Section)
			}
		} else {
			report.ErrorCount++
			if result.Error != "" {
				errorTypes = append(errorTypes, result.Error)
			}
		}

		if fastestFile == "" || result.ProcessTime < fastestTime {
			fastestFile = result.FilePath
			fastestTime = result.ProcessTime
		}
		if slowestFile == "" || result.ProcessTime > slowestTime {
			slowestFile = result.FilePath
			slowestTime = result.ProcessTime
		}
		totalProcessTime += result.ProcessTime
	}

	report.Summary.ErrorTypes = errorTypes
	report.Summary.FastestFile = fastestFile
	report.Summary.SlowestFile = slowestFile
	report.Summary.TotalParams = totalParams
	if len(results) > 0 {
		report.Summary.AverageTime = float64(totalProcessTime.Milliseconds()) / float64(len(results))
	}

	return report
}

// saveReport saves the processing report
func (bp *BatchProcessor) saveReport(report *BatchReport) error {
	if bp.options.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(bp.options.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reportFile := filepath.Join(bp.options.OutputDir, "batch_report.json")
	reportData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(reportFile, reportData, 0o644)
}
