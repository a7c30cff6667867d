package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	table := Table{
		Headers: []string{"Name", "Status"},
		Rows:    [][]string{{"alice", "ENROLLED"}, {"bob", "REQUESTED"}},
	}

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Status", lines[0])
	assert.Equal(t, "alice,ENROLLED", lines[1])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestCSVExporterPadsShortRows(t *testing.T) {
	table := Table{
		Headers: []string{"A", "B", "C"},
		Rows:    [][]string{{"only"}},
	}

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)
	assert.Contains(t, string(out), "only,,")
}

func TestPDFExporterRender(t *testing.T) {
	table := Table{
		Headers: []string{"Name", "Status"},
		Rows:    [][]string{{"alice", "ENROLLED"}},
	}

	out, err := NewPDFExporter().Render(table, "Roster")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
