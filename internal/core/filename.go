package core

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// MaxFilenameLength bounds the accepted filename in bytes.
const MaxFilenameLength = 255

// filenameAllowed admits ASCII letters and digits, CJK ideographs, space and
// a small set of punctuation. Path separators and shell metacharacters are
// not in the set.
var filenameAllowed = regexp.MustCompile(`^[\p{Han}A-Za-z0-9 _\-.()（）\[\]【】]+$`)

// DecodeFilename returns the name to check and record for an upload, and
// whether it is acceptable.
//
// Multipart clients sometimes send UTF-8 names that were decoded as
// ISO-8859-1 on the way, so "数据.xlsx" arrives as "æ\u0095°æ\u008d®.xlsx".
// When the raw name looks like that, it is re-encoded to bytes and read as
// UTF-8. Either the repaired or the raw form must pass the allow-list.
func DecodeFilename(raw string) (string, bool) {
	candidates := make([]string, 0, 2)
	if fixed, ok := repairLatin1(raw); ok {
		candidates = append(candidates, fixed)
	}
	candidates = append(candidates, norm.NFC.String(raw))

	for _, name := range candidates {
		if filenameOK(name) {
			return name, true
		}
	}
	return raw, false
}

func filenameOK(name string) bool {
	if name == "" || len(name) > MaxFilenameLength {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return false
	}
	return filenameAllowed.MatchString(name)
}

// repairLatin1 undoes a UTF-8 -> ISO-8859-1 mis-decode. It only applies when
// every rune fits in one Latin-1 byte and at least one is outside ASCII.
func repairLatin1(raw string) (string, bool) {
	high := false
	for _, r := range raw {
		if r > 0xFF {
			return "", false
		}
		if r >= 0x80 {
			high = true
		}
	}
	if !high {
		return "", false
	}

	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(raw))
	if err != nil || !utf8.Valid(b) {
		return "", false
	}
	return norm.NFC.String(string(b)), true
}
