package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/schema"
)

func saveDoc(t *testing.T, path string, sections map[string][]*models.MethodDetails) {
	t.Helper()
	doc := models.NewSchema()
	doc.Docs = sections
	require.NoError(t, schema.Save(doc, path))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml"), "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func roomsMethod(httpMethod, endpoint string) *models.MethodDetails {
	return &models.MethodDetails{
		Header: httpMethod + " " + endpoint,
		ParametersAndResponse: map[string][]*models.Parameter{
			"Response Properties": {
				{Name: "id", Type: "string"},
				{Name: "title", Type: "string"},
				{Name: "owner", Type: "object", Object: []*models.Parameter{{Name: "email", Type: "string"}}},
			},
		},
		Documentation: models.MethodDoc{HTTPMethod: httpMethod, Endpoint: endpoint},
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.yml")
	current := filepath.Join(dir, "current.yml")
	saveDoc(t, baseline, map[string][]*models.MethodDetails{
		"Rooms":  {roomsMethod("GET", "https://webexapis.com/v1/rooms")},
		"People": {},
	})
	saveDoc(t, current, map[string][]*models.MethodDetails{
		"Rooms": {
			roomsMethod("GET", "https://webexapis.com/v1/rooms"),
			roomsMethod("DELETE", "https://webexapis.com/v1/rooms/{roomId}"),
		},
	})

	out, err := execute(t, "diff", baseline, current)
	require.NoError(t, err)
	assert.Contains(t, out, "- section People")
	assert.Contains(t, out, "~ section Rooms")
	assert.Contains(t, out, "+ DELETE https://webexapis.com/v1/rooms/{roomId}")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yml")
	saveDoc(t, valid, map[string][]*models.MethodDetails{
		"Rooms": {roomsMethod("GET", "https://webexapis.com/v1/rooms")},
	})

	out, err := execute(t, "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "1 sections, 1 methods, 1 parameter groups")

	invalid := filepath.Join(dir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("docs:\n  Rooms: not-a-list\n"), 0o644))
	_, err = execute(t, "validate", invalid)
	var docErr *schema.InvalidDocumentError
	assert.ErrorAs(t, err, &docErr)
}

func TestClassesCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "schema.yml")
	output := filepath.Join(dir, "gen", "models.go")
	saveDoc(t, input, map[string][]*models.MethodDetails{
		"Rooms": {roomsMethod("GET", "https://webexapis.com/v1/rooms")},
	})

	_, err := execute(t, "classes", "-i", input, "-o", output, "--package", "webex")
	require.NoError(t, err)

	src, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package webex")
	assert.Contains(t, string(src), "type Owner struct")
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	snapshots := filepath.Join(dir, "snapshots")
	page := `<html><body><div class="api-reference__description">
<div><h4>List Rooms</h4><div><p>List rooms.</p></div></div>
<div class="section"><h6>Query Parameters</h6><div class="vertical-up">
<div class="param"><div class="name-type"><div class="n">max</div><div class="t"><span>number</span></div></div><div class="spec"><p>Limit.</p></div></div>
</div></div>
<div class="codes"></div>
</div></body></html>`
	require.NoError(t, os.MkdirAll(filepath.Join(snapshots, "Rooms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshots, "Rooms", "list-rooms.html"), []byte(page), 0o644))

	output := filepath.Join(dir, "schema.yml")
	out, err := execute(t, "parse", snapshots, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "1 files processed, 0 errors, 1 parameters")

	doc, err := schema.Load(output)
	require.NoError(t, err)
	require.Len(t, doc.Docs["Rooms"], 1)
	assert.Equal(t, "List Rooms", doc.Docs["Rooms"][0].Header)
	assert.Equal(t, "Parsed from "+snapshots, doc.Info)
}

func TestAttrsCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "schema.yml")
	md := roomsMethod("GET", "https://webexapis.com/v1/rooms")
	md.ParametersAndResponse["Response Properties"] = append(md.ParametersAndResponse["Response Properties"],
		&models.Parameter{Name: "Display Name", Type: "string"})
	saveDoc(t, input, map[string][]*models.MethodDetails{"Rooms": {md}})

	out, err := execute(t, "attrs", "-i", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Rooms/GET https://webexapis.com/v1/rooms/Response Properties/Display Name\tstring\talias of DisplayName\n")
	assert.Contains(t, out, "/Response Properties/title\tstring\n")
}

func TestParseGroupCommand(t *testing.T) {
	fragment := filepath.Join(t.TempDir(), "group.html")
	markup := `<div class="vertical-up">
<div class="param"><div class="name-type"><div class="n">max</div><div class="t"><span>number</span></div></div><div class="spec"><p>Limit.</p></div></div>
</div>`
	require.NoError(t, os.WriteFile(fragment, []byte(markup), 0o644))

	out, err := execute(t, "parse-group", fragment)
	require.NoError(t, err)
	assert.Contains(t, out, "name: max")
	assert.Contains(t, out, "type: number")

	empty := filepath.Join(t.TempDir(), "empty.html")
	require.NoError(t, os.WriteFile(empty, []byte("<p>nothing</p>"), 0o644))
	_, err = execute(t, "parse-group", empty)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug"))
	assert.Error(t, setupLogging("loud"))
	require.NoError(t, setupLogging("info"))
}
