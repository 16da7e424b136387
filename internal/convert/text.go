package convert

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// TextExtractor decodes plain text files whatever their character set.
//
// It never fails: undecodable bytes become U+FFFD.
type TextExtractor struct{}

// Extensions implements Extractor.
func (*TextExtractor) Extensions() []string {
	return []string{".txt", ".md"}
}

// Extract implements Extractor.
func (*TextExtractor) Extract(data []byte) (string, error) {
	return DecodeText(data), nil
}

var boms = []struct {
	prefix []byte
	enc    encoding.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, unicode.UTF8},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)},
	{[]byte{0xFF, 0xFE}, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{[]byte{0xFE, 0xFF}, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
}

// DecodeText converts data to UTF-8: a byte order mark wins, then valid UTF-8
// is kept as is, otherwise the most likely character set is detected.
func DecodeText(data []byte) string {
	for _, b := range boms {
		if bytes.HasPrefix(data, b.prefix) {
			return decodeWith(b.enc, data[len(b.prefix):])
		}
	}
	// UTF-16 without a byte order mark is valid UTF-8 full of NULs.
	if utf8.Valid(data) && bytes.IndexByte(data, 0) < 0 {
		return string(data)
	}
	if enc := detect(data); enc != nil {
		return decodeWith(enc, data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// DetectCharset returns the name of the most likely character set of data,
// or "" when nothing matches.
func DetectCharset(data []byte) string {
	r, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return ""
	}
	return r.Charset
}

func detect(data []byte) encoding.Encoding {
	name := DetectCharset(data)
	if name == "" {
		return nil
	}
	return lookupEncoding(name)
}

// lookupEncoding maps a detector charset name to a decoder.
func lookupEncoding(name string) encoding.Encoding {
	switch strings.ToUpper(name) {
	case "UTF-32BE":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
	case "UTF-32LE":
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
	case "GB-18030":
		name = "gb18030"
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}
	// EBCDIC names carry a text direction suffix, e.g. IBM420_ltr.
	name, _, _ = strings.Cut(name, "_")
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	return nil
}

func decodeWith(enc encoding.Encoding, data []byte) string {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return strings.ToValidUTF8(string(out), "�")
}
