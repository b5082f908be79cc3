// Package schema reads and writes the persisted YAML document and compares scrape results.
package schema

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/validate"
)

const commentPrefix = "# "

// InvalidDocumentError is returned when a document does not match the persisted format
type InvalidDocumentError struct {
	Errors []validate.ValidationError
}

func (e *InvalidDocumentError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", ve.Field, ve.Description))
	}
	return "invalid document: " + strings.Join(parts, "; ")
}

// Marshal renders the document as YAML. Info is written as leading comment lines.
func Marshal(doc *models.Schema) ([]byte, error) {
	var buf bytes.Buffer
	if doc.Info != "" {
		for _, line := range strings.Split(doc.Info, "\n") {
			buf.WriteString(commentPrefix + line + "\n")
		}
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal validates and decodes a YAML document
func Unmarshal(data []byte) (*models.Schema, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	result, err := validate.NewSchemaValidator().ValidateDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}
	if !result.Valid {
		return nil, &InvalidDocumentError{Errors: result.Errors}
	}

	doc := models.NewSchema()
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Info = readInfo(data)
	doc.Normalize()
	return doc, nil
}

// readInfo collects the leading comment lines
func readInfo(data []byte) string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "#") {
			break
		}
		lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(line, "#"), " "))
	}
	return strings.Join(lines, "\n")
}

// Load reads a document from disk
func Load(path string) (*models.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return doc, nil
}

// Save writes a document to disk, creating parent directories
func Save(doc *models.Schema, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
