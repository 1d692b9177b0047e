package core

// scanner.go holds the content security scanner. Patterns are compiled once
// per Scanner; scanning keeps no state between calls, so one Scanner is
// shared by every request.

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// PatternClass groups scan patterns by the attack they indicate.
type PatternClass string

const (
	ClassScript          PatternClass = "script_injection"
	ClassSQL             PatternClass = "sql_injection"
	ClassShell           PatternClass = "command_execution"
	ClassFilesystem      PatternClass = "filesystem_mutation"
	ClassNetwork         PatternClass = "network_call"
	ClassPrivilege       PatternClass = "privilege_call"
	ClassDeserialization PatternClass = "deserialization"
	ClassTraversal       PatternClass = "path_traversal"
	ClassEncoding        PatternClass = "suspicious_encoding"
	ClassEscalation      PatternClass = "privilege_escalation"
)

type pattern struct {
	class PatternClass
	re    *regexp.Regexp
}

var filePatternSource = map[PatternClass][]string{
	ClassScript: {
		`(?i)<\s*script[\s>/]`,
		`(?i)javascript\s*:`,
		`(?i)vbscript\s*:`,
		`(?i)<\s*iframe[\s>/]`,
		`(?i)\bon(?:load|error|click|mouseover|focus)\s*=\s*["']?[a-z]`,
		`(?i)document\.(?:cookie|write)`,
	},
	ClassSQL: {
		`(?i)\bunion\s+(?:all\s+)?select\b`,
		`(?i)\bdrop\s+(?:table|database|schema)\b`,
		`(?i)\bdelete\s+from\s+\w+`,
		`(?i)\binsert\s+into\s+\w+.{0,200}\bvalues\b`,
		`(?i)\bupdate\s+\w+\s+set\s+\w+\s*=`,
		`(?i)'\s*or\s+'?1'?\s*=\s*'?1`,
		`(?i)\bxp_cmdshell\b`,
		`(?i)\b(?:pg_)?sleep\s*\(\s*\d+\s*\)`,
		`(?i)\binformation_schema\b`,
	},
	ClassShell: {
		`(?i)\b(?:os\.system|os\.popen|subprocess\.(?:call|run|popen|check_output)|shell_exec|passthru|proc_open|popen)\s*\(`,
		`(?i)runtime\.getruntime\(\)\.exec`,
		`(?i)\b(?:eval|exec|system)\s*\(\s*["'$]`,
		`(?i)\bcmd(?:\.exe)?\s*/c\b`,
		`(?i)\bpowershell(?:\.exe)?\s+-`,
		`(?i)/bin/(?:ba)?sh\b`,
		`(?i)=\s*(?:cmd|powershell|mshta|msexcel)\s*\|`,
	},
	ClassFilesystem: {
		`(?i)\b(?:os\.(?:remove|unlink|rmdir|removedirs)|shutil\.rmtree|fs\.(?:unlinksync|rmsync|writefilesync))\s*\(`,
		`(?i)\b(?:unlink|rmdir|file_put_contents|fwrite)\s*\(`,
		`(?i)\brm\s+-[rf]{1,2}\s`,
		`(?i)\bdel\s+/[fsq]\b`,
	},
	ClassNetwork: {
		`(?i)\b(?:curl|wget)\s+(?:-\w+\s+)*https?://`,
		`(?i)\bxmlhttprequest\b`,
		`(?i)\bfetch\s*\(\s*["']https?://`,
		`(?i)\b(?:urllib\.request|requests\.(?:get|post))\s*\(`,
		`(?i)\bsocket\.(?:connect|socket)\s*\(`,
		`(?i)\binvoke-webrequest\b`,
		`(?i)\bnc\s+-e\b`,
	},
	ClassPrivilege: {
		`(?i)\bchmod\s+[0-7]{3,4}\b`,
		`(?i)\bchmod\s+[ugoa]*\+s\b`,
		`(?i)\bchown\s+root\b`,
		`(?i)\bsudo\s+\w+`,
		`(?i)\b(?:os\.)?set(?:e)?uid\s*\(`,
		`(?i)\bgrant\s+all\s+privileges\b`,
	},
	ClassDeserialization: {
		`(?i)\bpickle\.loads?\s*\(`,
		`(?i)\byaml\.(?:unsafe_)?load\s*\(`,
		`(?i)\bunserialize\s*\(`,
		`(?i)\bmarshal\.loads\s*\(`,
		`(?i)\bobjectinputstream\b`,
		`__reduce__|__import__\s*\(`,
	},
	ClassTraversal: {
		`\.\./\.\./`,
		`\.\.\\\.\.\\`,
		`(?i)%2e%2e(?:%2f|%5c|/)`,
		`(?i)/etc/(?:passwd|shadow)\b`,
		`(?i)c:\\windows\\system32`,
	},
	ClassEncoding: {
		`(?i)(?:%[0-9a-f]{2}){8,}`,
		`(?i)(?:\\x[0-9a-f]{2}){8,}`,
		`(?i)(?:\\u00[0-9a-f]{2}){8,}`,
		`(?i)\b(?:base64_decode|atob)\s*\(`,
		`(?i)string\.fromcharcode\s*\(`,
		`(?i)data:[a-z]+/[a-z0-9.+-]+;base64,`,
	},
}

// fieldPatternSource is the narrower set run on individual cell values. It
// targets claims of elevated capability that only read as such once a cell
// has been parsed.
var fieldPatternSource = map[PatternClass][]string{
	ClassEscalation: {
		`(?i)\b(?:is_?admin|is_?superuser|role|privilege|access_level)\s*[:=]\s*["']?(?:true|1|admin|root|superuser)\b`,
		`(?i)\b(?:grant|give|make|set|promote|elevate|escalate)\s+(?:me|user|this\s+(?:user|account))?\s*(?:to|as)?\s*(?:an?\s+)?(?:admin|administrator|root|superuser)\b`,
		`(?i)\bbypass[\s_-]*(?:auth|authentication|login|security|permission)s?\b`,
		`(?i)\b(?:disable|skip)[\s_-]*(?:auth|authentication|permission)\s+checks?\b`,
		`(?i)\bsuper[\s_-]?user\s+(?:access|mode|privileges?)\b`,
	},
	ClassScript: filePatternSource[ClassScript],
}

// DefaultScanPrefix is the number of leading file bytes scanned.
const DefaultScanPrefix = 100 * 1024

// Scanner detects malicious payloads in a whole file and in single field
// values.
type Scanner struct {
	file   []pattern
	field  []pattern
	prefix int
}

// NewScanner compiles the pattern library. prefix bounds how many bytes of
// the raw file, and in total of its decompressed XML parts, are inspected.
func NewScanner(prefix int) *Scanner {
	if prefix <= 0 {
		prefix = DefaultScanPrefix
	}
	return &Scanner{
		file:   compilePatterns(filePatternSource),
		field:  compilePatterns(fieldPatternSource),
		prefix: prefix,
	}
}

func compilePatterns(src map[PatternClass][]string) []pattern {
	classes := make([]string, 0, len(src))
	for c := range src {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)

	var out []pattern
	for _, c := range classes {
		for _, expr := range src[PatternClass(c)] {
			out = append(out, pattern{class: PatternClass(c), re: regexp.MustCompile(expr)})
		}
	}
	return out
}

// Scan inspects the raw file prefix and, for zip containers, the leading
// bytes of its XML parts. Any match rejects the file.
func (s *Scanner) Scan(data []byte) Verdict {
	hits := make(map[PatternClass]int)
	s.match(s.file, head(data, s.prefix), hits)

	for _, part := range s.zipParts(data) {
		s.match(s.file, part, hits)
	}

	if len(hits) > 0 {
		return Reject(StageScan, KindSecurityRejection, ReasonMaliciousContent, summarizeHits(hits))
	}
	return Accept(StageScan)
}

// ScanField inspects one cell value.
func (s *Scanner) ScanField(value string) Verdict {
	if value == "" {
		return Accept(StageImport)
	}
	hits := make(map[PatternClass]int)
	s.match(s.field, []byte(value), hits)
	if len(hits) > 0 {
		return Reject(StageImport, KindSecurityRejection, ReasonMaliciousContent, summarizeHits(hits))
	}
	return Accept(StageImport)
}

func (s *Scanner) match(patterns []pattern, data []byte, hits map[PatternClass]int) {
	if len(data) == 0 {
		return
	}
	for _, p := range patterns {
		if n := len(p.re.FindAllIndex(data, -1)); n > 0 {
			hits[p.class] += n
		}
	}
}

// zipParts returns bounded decompressed prefixes of the XML parts of a zip
// container, shared strings first. Non-zip input yields nothing.
func (s *Scanner) zipParts(data []byte) [][]byte {
	if !bytes.HasPrefix(data, []byte("PK")) {
		return nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".xml") || strings.HasSuffix(f.Name, ".rels") {
			files = append(files, f)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return partRank(files[i].Name) < partRank(files[j].Name)
	})

	budget := s.prefix
	var parts [][]byte
	for _, f := range files {
		if budget <= 0 {
			break
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, _ := io.ReadAll(io.LimitReader(rc, int64(budget)))
		rc.Close()
		budget -= len(b)
		parts = append(parts, b)
	}
	return parts
}

func partRank(name string) int {
	switch {
	case strings.HasSuffix(name, "sharedStrings.xml"):
		return 0
	case strings.Contains(name, "worksheets/"):
		return 1
	default:
		return 2
	}
}

// summarizeHits renders match counts as "class=n" pairs in a stable order.
func summarizeHits(hits map[PatternClass]int) string {
	classes := make([]string, 0, len(hits))
	total := 0
	for c, n := range hits {
		classes = append(classes, fmt.Sprintf("%s=%d", c, n))
		total += n
	}
	sort.Strings(classes)
	return fmt.Sprintf("%d match(es): %s", total, strings.Join(classes, ", "))
}
