package core

import (
	"bytes"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

// SignatureProfile is a magic-number prefix identifying a container format.
type SignatureProfile struct {
	Name   string
	Magic  []byte
	Format workbook.Format
}

// signatureProfiles is the fixed set of recognised prefixes. Only the first
// eight bytes of a file are compared.
var signatureProfiles = []SignatureProfile{
	{Name: "ole2 compound document", Magic: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, Format: workbook.FormatXLS},
	{Name: "zip local file header", Magic: []byte("PK\x03\x04"), Format: workbook.FormatXLSX},
	{Name: "zip empty archive", Magic: []byte("PK\x05\x06"), Format: workbook.FormatXLSX},
	{Name: "zip spanned archive", Magic: []byte("PK\x07\x08"), Format: workbook.FormatXLSX},
}

// SignatureLength is how many leading bytes DetectFormat inspects.
const SignatureLength = 8

// DetectFormat matches the head of data against the registered profiles.
func DetectFormat(data []byte) (SignatureProfile, bool) {
	head := data
	if len(head) > SignatureLength {
		head = head[:SignatureLength]
	}
	for _, p := range signatureProfiles {
		if bytes.HasPrefix(head, p.Magic) {
			return p, true
		}
	}
	return SignatureProfile{}, false
}
