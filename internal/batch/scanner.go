package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReferencePage is the file name of a saved section listing inside a section directory
const ReferencePage = "reference.html"

// ScannerOptions configures file scanning behavior
type ScannerOptions struct {
	ExcludeDirs []string // Directories to exclude
	MaxDepth    int      // Maximum directory depth below the root (0 = unlimited)
	SkipAssets  bool     // Skip asset directories (css, js, images, etc.)
}

// ScanResult represents the result of a directory scan
type ScanResult struct {
	TotalFiles   int      `json:"total_files"`
	TotalDirs    int      `json:"total_dirs"`
	HTMLFiles    []string `json:"html_files"`
	SkippedFiles []string `json:"skipped_files"`
	ErrorFiles   []string `json:"error_files"`

	// Sections maps a section name to its method page snapshots in path order
	Sections map[string][]string `json:"sections"`
	// References maps a section name to its saved listing page
	References map[string]string `json:"references,omitempty"`
}

// SectionNames returns the scanned sections in sorted order
func (r *ScanResult) SectionNames() []string {
	names := make([]string, 0, len(r.Sections))
	for name := range r.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DirectoryScanner finds saved method pages laid out as <root>/<section>/<method>.html
type DirectoryScanner struct {
	options *ScannerOptions
}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner(options *ScannerOptions) *DirectoryScanner {
	if options == nil {
		options = &ScannerOptions{SkipAssets: true}
	}

	return &DirectoryScanner{
		options: options,
	}
}

// ScanDirectory scans a directory for method page snapshots
func (ds *DirectoryScanner) ScanDirectory(rootPath string) (*ScanResult, error) {
	result := &ScanResult{
		HTMLFiles:    []string{},
		SkippedFiles: []string{},
		ErrorFiles:   []string{},
		Sections:     make(map[string][]string),
		References:   make(map[string]string),
	}

	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", rootPath)
	}

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.ErrorFiles = append(result.ErrorFiles, path)
			return nil // Continue processing other files
		}

		if info.IsDir() {
			if path == rootPath {
				return nil
			}
			result.TotalDirs++
			if ds.shouldSkipDirectory(rootPath, path, info) {
				return filepath.SkipDir
			}
			return nil
		}

		result.TotalFiles++
		if !strings.HasSuffix(strings.ToLower(info.Name()), ".html") {
			return nil
		}

		section := ds.extractSection(path, rootPath)
		switch {
		case section == "" || ds.shouldSkipFile(path, info):
			result.SkippedFiles = append(result.SkippedFiles, path)
		case strings.EqualFold(info.Name(), ReferencePage):
			result.References[section] = path
		default:
			result.HTMLFiles = append(result.HTMLFiles, path)
			result.Sections[section] = append(result.Sections[section], path)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return result, nil
}

// shouldSkipFile determines if a file should be skipped
func (ds *DirectoryScanner) shouldSkipFile(path string, info os.FileInfo) bool {
	fileName := strings.ToLower(info.Name())

	if fileName == "404.html" || fileName == "index.html" {
		return true
	}

	if ds.options.SkipAssets {
		dirName := strings.ToLower(filepath.Base(filepath.Dir(path)))
		if isAssetDir(dirName) {
			return true
		}
	}

	return false
}

// shouldSkipDirectory determines if a directory should be skipped
func (ds *DirectoryScanner) shouldSkipDirectory(rootPath, path string, info os.FileInfo) bool {
	dirName := strings.ToLower(info.Name())

	if strings.HasPrefix(dirName, ".") {
		return true
	}

	if ds.options.SkipAssets && isAssetDir(dirName) {
		return true
	}

	for _, excludeDir := range ds.options.ExcludeDirs {
		if info.Name() == excludeDir {
			return true
		}
	}

	if ds.options.MaxDepth > 0 {
		rel, err := filepath.Rel(rootPath, path)
		if err == nil && getDepth(rel) > ds.options.MaxDepth {
			return true
		}
	}

	return false
}

func isAssetDir(name string) bool {
	switch name {
	case "assets", "css", "js", "javascripts", "stylesheets", "images", "img", "node_modules", "vendor":
		return true
	}
	return false
}

// getDepth calculates the directory depth
func getDepth(path string) int {
	parts := strings.Split(path, string(filepath.Separator))
	depth := 0
	for _, part := range parts {
		if part != "" && part != "." {
			depth++
		}
	}
	return depth
}

// extractSection returns the first directory below the root; files directly in the root belong to no section
func (ds *DirectoryScanner) extractSection(filePath, rootPath string) string {
	relPath, err := filepath.Rel(rootPath, filePath)
	if err != nil {
		return ""
	}

	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}
	return strings.ReplaceAll(parts[0], "_", " ")
}
