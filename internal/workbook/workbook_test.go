package workbook

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAliases_Resolve(t *testing.T) {
	aliases := DefaultAliases()

	tests := []struct {
		name   string
		kind   string
		sheets []string
		want   string
		found  bool
	}{
		{"canonical name", "users", []string{"User Data"}, "User Data", true},
		{"case and whitespace", "users", []string{"  users "}, "  users ", true},
		{"chinese alias", "projects", []string{"项目数据"}, "项目数据", true},
		{"generic fallback", "users", []string{"Sheet1"}, "Sheet1", true},
		{"specific beats fallback", "users", []string{"Sheet1", "Users"}, "Users", true},
		{"absent", "achievements", []string{"Users", "Misc"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := aliases.Resolve(tt.kind, tt.sheets)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAliasTable_ResolveAllClaimsOnce(t *testing.T) {
	table := AliasTable{Entities: map[string][]string{
		"a": {"Shared"},
		"b": {"Shared", "B"},
	}}

	got := table.ResolveAll([]string{"a", "b"}, []string{"Shared"})
	assert.Equal(t, map[string]string{"a": "Shared"}, got)
}

func TestAliasTable_Ignored(t *testing.T) {
	aliases := DefaultAliases()
	assert.True(t, aliases.Ignored("export info"))
	assert.False(t, aliases.Ignored("Users"))
	assert.Equal(t, "User Data", aliases.Canonical("users"))
	assert.Equal(t, "unknown", aliases.Canonical("unknown"))
}

func TestLoadAliases_RejectsEmptyKind(t *testing.T) {
	_, err := LoadAliases(strings.NewReader("entities:\n  users: []\n"))
	assert.Error(t, err)
}

func TestWriteXLSX_ReadBack(t *testing.T) {
	data, err := WriteXLSX([]Sheet{
		{
			Name:   "User Data",
			Header: []string{"ID", "Username", "Note"},
			Rows: [][]string{
				{"1", "alice", "=cmd|'/c calc'!A1"},
				{"2", "李雷", ""},
			},
			Widths: []float64{10, 12, 20},
		},
		{Name: "Export Info", Header: []string{"Field", "Value"}},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("PK\x03\x04")))

	wb, err := Open(data, FormatXLSX, Limits{})
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"User Data", "Export Info"}, wb.SheetNames())

	rows, err := wb.Rows("User Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Username", "Note"}, rows[0])
	assert.Equal(t, "=cmd|'/c calc'!A1", rows[1][2])
	assert.Equal(t, "李雷", rows[2][1])
}

func TestOpen_LegacyXLS(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "legacy_backup.xls"))
	require.NoError(t, err)

	wb, err := Open(data, FormatXLS, Limits{})
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"用户数据", "积分记录"}, wb.SheetNames())

	users, err := wb.Rows("用户数据")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"用户名", "邮箱", "角色"},
		{"alice", "alice@example.com", "user"},
		{"李雷", "lilei@example.com", "user"},
	}, users)

	points, err := wb.Rows("积分记录")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, []string{"李雷", "20", "每日签到", "2024-03-01 08:00:00"}, points[1])

	_, err = wb.Rows("Missing")
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestOpen_Corrupt(t *testing.T) {
	_, err := Open([]byte("PK\x03\x04 not really a zip"), FormatXLSX, Limits{})
	assert.True(t, errors.Is(err, ErrCorrupt))

	_, err = Open([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, FormatXLS, Limits{})
	assert.True(t, errors.Is(err, ErrCorrupt))

	_, err = Open(nil, Format("csv"), Limits{})
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestWriteXLSX_Empty(t *testing.T) {
	_, err := WriteXLSX(nil)
	assert.Error(t, err)
}
