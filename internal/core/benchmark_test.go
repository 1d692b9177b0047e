package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkParseTime covers every accepted layout. Time columns appear in
// most sheets, so this runs once per row for nearly every kind.
func BenchmarkParseTime(b *testing.B) {
	testCases := []string{
		"2024-05-06 07:08:09",
		"2024-05-06T07:08:09Z",
		"2024/05/06",
		"2024-05-06",
		"45292.5", // Excel serial
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseTime(tc)
		}
	}
}

// BenchmarkParseTime_Export benchmarks the layout exports write.
func BenchmarkParseTime_Export(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseTime("2024-05-06 07:08:09")
	}
}

func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"alice",
		"  padded value  ",
		"\ufeffbom prefixed",
		"学习记录",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// ============================================================================
// Scanner Benchmarks
// ============================================================================

// BenchmarkScanField runs the field patterns over a typical clean cell.
// Every text cell of every row goes through this.
func BenchmarkScanField(b *testing.B) {
	s := NewScanner(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.ScanField("completed chapter three review, 45 minutes")
	}
}

// BenchmarkScan_Prefix benchmarks the raw prefix scan at the default bound.
func BenchmarkScan_Prefix(b *testing.B) {
	s := NewScanner(0)
	data := []byte(strings.Repeat("username,email,role\nalice,alice@example.com,user\n", 4000))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Scan(data)
	}
}

// BenchmarkScan_Workbook scans a real xlsx container, including its zip
// parts.
func BenchmarkScan_Workbook(b *testing.B) {
	rows := make([][]string, 2000)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i), "user"}
	}
	data, err := workbook.WriteXLSX([]workbook.Sheet{
		{Name: "Users", Header: []string{"Username", "Email", "Role"}, Rows: rows},
	})
	if err != nil {
		b.Fatal(err)
	}
	s := NewScanner(0)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Scan(data)
	}
}

// ============================================================================
// Shape and Structure Benchmarks
// ============================================================================

func BenchmarkDetectFormat(b *testing.B) {
	data, err := workbook.WriteXLSX([]workbook.Sheet{
		{Name: "Users", Header: []string{"Username"}, Rows: [][]string{{"alice"}}},
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectFormat(data)
	}
}

// BenchmarkDecodeFilename_Mangled benchmarks the Latin-1 repair path, the
// slowest one a filename can take.
func BenchmarkDecodeFilename_Mangled(b *testing.B) {
	var mangled strings.Builder
	for _, c := range []byte("数据备份.xlsx") {
		mangled.WriteRune(rune(c))
	}
	raw := mangled.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeFilename(raw)
	}
}

// BenchmarkValidateStructure resolves aliases and counts rows for a two
// sheet workbook of 5000 rows each.
func BenchmarkValidateStructure(b *testing.B) {
	users := [][]string{{"Username", "Email"}}
	points := [][]string{{"User", "Amount", "Created At"}}
	for i := 0; i < 5000; i++ {
		users = append(users, []string{fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i)})
		points = append(points, []string{fmt.Sprintf("user%d", i), "5", "2024-01-01"})
	}
	wb := newFakeWorkbook().add("用户数据", users...).add("积分记录", points...)
	aliases := workbook.DefaultAliases()
	kinds := []string{"users", "points"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateStructure(wb, aliases, kinds, 20000)
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

func BenchmarkScanFieldParallel(b *testing.B) {
	s := NewScanner(0)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.ScanField("completed chapter three review, 45 minutes")
		}
	})
}

func BenchmarkParseTimeParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ParseTime("2024-05-06 07:08:09")
		}
	})
}
