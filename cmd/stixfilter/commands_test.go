package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	labelID = "b5c2e8a1-0d1f-4d7c-9a3e-6f2a1b4c8d90"

	indicatorDoc = `{
		"id": "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f",
		"type": "indicator",
		"labels": ["malware"],
		"extensions": {
			"extension-definition--ea279b3e-5c71-4632-ac08-831c66a786ba": {"type": "Indicator"}
		}
	}`

	cacheDoc = `{"ResolvedFilters": {"` + labelID + `": {"id": "` + labelID + `", "entity_type": "Label", "value": "malware"}}}`
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Structure(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["validate"])
	assert.True(t, names["match"])

	for _, flag := range []string{"json", "verbose", "stix-testers", "event-testers"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestValidateCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		group   string
		want    string
		wantErr bool
	}{
		{
			name:  "Valid stix group",
			group: `{"mode": "and", "filters": [{"key": "entity_type", "values": ["Indicator"]}], "filterGroups": []}`,
			want:  "valid\n",
		},
		{
			name:    "Unknown key",
			group:   `{"mode": "and", "filters": [{"key": "nope", "values": ["x"]}], "filterGroups": []}`,
			want:    "invalid: ",
			wantErr: true,
		},
		{
			name:    "Stix key on event subject",
			args:    []string{"--subject", "event"},
			group:   `{"mode": "and", "filters": [{"key": "entity_type", "values": ["Indicator"]}], "filterGroups": []}`,
			want:    "invalid: ",
			wantErr: true,
		},
		{
			name:    "Not a filter group",
			group:   `{"mode": "and"}`,
			want:    "invalid: ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "group.json", tt.group)
			out, err := execute(append(append([]string{"validate"}, tt.args...), path)...)

			if tt.wantErr {
				assert.ErrorIs(t, err, errRejected)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestValidateCmd_UnknownSubject(t *testing.T) {
	path := writeFile(t, "group.json", `{"filters": [], "filterGroups": []}`)
	_, err := execute("validate", "--subject", "bundle", path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errRejected)
}

func TestMatchCmd_WithCache(t *testing.T) {
	group := writeFile(t, "group.json", `{"mode": "and", "filters": [{"key": "objectLabel", "values": ["`+labelID+`"]}], "filterGroups": []}`)
	stix := writeFile(t, "stix.json", indicatorDoc)
	snapshot := writeFile(t, "cache.json", cacheDoc)

	out, err := execute("match", "--json", "--filters", group, "--stix", stix, "--cache", snapshot)
	require.NoError(t, err)

	var result map[string]bool
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result["match"])
}

func TestMatchCmd_NoMatch(t *testing.T) {
	group := writeFile(t, "group.json", `{"mode": "and", "filters": [{"key": "entity_type", "values": ["Report"]}], "filterGroups": []}`)
	stix := writeFile(t, "stix.json", indicatorDoc)

	out, err := execute("match", "--filters", group, "--stix", stix)
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, "false\n", out)
}

func TestMatchCmd_Event(t *testing.T) {
	group := writeFile(t, "group.json", `{"mode": "and", "filters": [{"key": "event_type", "values": ["mutation"]}], "filterGroups": []}`)
	event := writeFile(t, "event.json", `{"version": "1", "type": "mutation", "event_scope": "update", "timestamp": "2024-01-01T00:00:00Z"}`)

	out, err := execute("match", "--filters", group, "--event", event)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestMatchCmd_CustomTester(t *testing.T) {
	group := writeFile(t, "group.json", `{"mode": "and", "filters": [{"key": "x_has_labels", "values": []}], "filterGroups": []}`)
	stix := writeFile(t, "stix.json", indicatorDoc)

	out, err := execute("match", "--stix-testers", "x_has_labels=has(stix.labels)", "--filters", group, "--stix", stix)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestMatchCmd_Errors(t *testing.T) {
	group := writeFile(t, "group.json", `{"filters": [], "filterGroups": []}`)
	stix := writeFile(t, "stix.json", indicatorDoc)

	tests := []struct {
		name string
		args []string
	}{
		{"No subject", []string{"match", "--filters", group}},
		{"Both subjects", []string{"match", "--filters", group, "--stix", stix, "--event", stix}},
		{"Missing filters flag", []string{"match", "--stix", stix}},
		{"Invalid stix", []string{"match", "--filters", group, "--stix", writeFile(t, "bad.json", `{"type": "indicator"}`)}},
		{"Missing cache file", []string{"match", "--filters", group, "--stix", stix, "--cache", filepath.Join(t.TempDir(), "none.json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(tt.args...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, errRejected)
		})
	}
}
