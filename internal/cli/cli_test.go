package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/core"
	"github.com/JonMunkholm/stateport/internal/web/middleware"
)

func TestWriteTable_AlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"SHEET", "ROWS"}, [][]string{
		{"用户数据", "3"},
		{"Projects", "12"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "--------  ----"))

	// The second column starts at the same cell offset on every line.
	col := strings.Index(lines[0], "ROWS")
	for _, line := range lines[2:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 2)
		assert.Equal(t, col, runewidth.StringWidth(line[:strings.LastIndex(line, fields[1])]), line)
	}
}

func TestWriteTable_TruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"EVIDENCE"}, [][]string{{strings.Repeat("x", 200)}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, maxCellWidth, runewidth.StringWidth(lines[2]))
	assert.True(t, strings.HasSuffix(lines[2], "…"))
}

func TestPrintImportResult(t *testing.T) {
	res := &core.ImportResult{
		ImportID: "imp-1",
		Stats: &core.ImportStats{Entities: []*core.EntityStats{
			{Kind: "users", Sheet: "Users", Imported: 2, SkippedExisting: 1},
			{Kind: "points", Sheet: "Points", Rejected: 1,
				Issues: []core.RowIssue{{Line: 3, Field: "User", Reason: "referenced users not found"}}},
		}},
		Warnings: []string{`sheet "Notes" not recognised`},
	}

	var buf bytes.Buffer
	printImportResult(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "import imp-1: 2 imported, 1 skipped, 1 rejected")
	assert.Contains(t, out, "referenced users not found")
	assert.Contains(t, out, `warning: sheet "Notes" not recognised`)
}

func TestCLIPrincipal(t *testing.T) {
	prev := operator
	defer func() { operator = prev }()

	operator = "ops"
	p := cliPrincipal()
	assert.Equal(t, "cli:ops", p.ID)
	assert.True(t, p.IsAdmin())
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_JWT_ISSUER", "stateport")

	cmd := newTokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", "7", "--username", "alice", "--ttl", "10m"})
	require.NoError(t, cmd.Execute())

	p, err := middleware.ParseToken(strings.TrimSpace(out.String()),
		[]byte("0123456789abcdef0123456789abcdef"), "stateport")
	require.NoError(t, err)
	assert.Equal(t, core.Principal{ID: "7", Username: "alice", Role: core.RoleAdmin}, p)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cmd := newTokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--subject", "7"})
	assert.ErrorContains(t, cmd.Execute(), "AUTH_JWT_SECRET")
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "export", "import", "audit", "token"} {
		assert.Contains(t, names, want)
	}
}
