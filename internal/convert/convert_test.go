package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
)

const russian = "Съешь же ещё этих мягких французских булок, да выпей чаю. " +
	"В чащах юга жил бы цитрус? Да, но фальшивый экземпляр! " +
	"Широкая электрификация южных губерний даст мощный толчок подъёму сельского хозяйства. " +
	"Это обычная заметка о том, что нужно купить в магазине и кому позвонить вечером.\n"

const bodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>First</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Second</w:t></w:r></w:p>
<w:sectPr/>
</w:body>
</w:document>`

// makeDocx builds a zip archive holding the given entries.
func makeDocx(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type panicky struct{}

func (panicky) Extensions() []string { return []string{".boom"} }

func (panicky) Extract([]byte) (string, error) { panic("secret detail") }

type upper struct{}

func (upper) Extensions() []string { return []string{"TXT"} }

func (upper) Extract(b []byte) (string, error) { return strings.ToUpper(string(b)), nil }

func TestConvert(t *testing.T) {
	cp1251, err := charmap.Windows1251.NewEncoder().String(russian)
	if err != nil {
		t.Fatal(err)
	}
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("héllo мир")
	if err != nil {
		t.Fatal(err)
	}
	docx := makeDocx(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   bodyXML,
	})

	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name     string
			filename string
			data     []byte
			want     string
		}{
			{"utf-8", "notes.txt", []byte("привет, world\n"), "привет, world\n"},
			{"utf-8 bom", "notes.txt", append([]byte{0xEF, 0xBB, 0xBF}, "bom"...), "bom"},
			{"utf-16 bom", "notes.txt", []byte(utf16), "héllo мир"},
			{"windows-1251", "notes.txt", []byte(cp1251), russian},
			{"upper case extension", "NOTES.TXT", []byte("x"), "x"},
			{"markdown", "readme.md", []byte("# title"), "# title"},
			{"empty", "empty.txt", nil, ""},
			{"docx", "report.docx", docx, "First\nSecond\n"},
		}
		r := Default()
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := r.Convert(t.Context(), tt.filename, bytes.NewReader(tt.data))
				if err != nil {
					t.Fatalf("Convert(%q) error: %v", tt.filename, err)
				}
				if got != tt.want {
					t.Errorf("Convert(%q) = %q, want %q", tt.filename, got, tt.want)
				}
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name            string
			filename        string
			data            []byte
			wantUnsupported bool
		}{
			{"pdf", "paper.pdf", []byte("%PDF-1.7"), true},
			{"no extension", "README", []byte("x"), true},
			{"corrupt docx", "broken.docx", []byte("PK\x03\x04 definitely not a zip"), false},
			{"docx without body", "empty.docx", makeDocx(t, map[string]string{"word/other.xml": "<x/>"}), false},
			{"malformed xml", "bad.docx", makeDocx(t, map[string]string{"word/document.xml": "<w:document><w:p></w:t></w:document>"}), false},
			{"truncated docx", "cut.docx", docx[:len(docx)/2], false},
		}
		r := Default()
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := r.Convert(t.Context(), tt.filename, bytes.NewReader(tt.data))
				var ce *ConversionError
				if !errors.As(err, &ce) {
					t.Fatalf("Convert(%q) error = %v, want *ConversionError", tt.filename, err)
				}
				if ce.Unsupported() != tt.wantUnsupported {
					t.Errorf("Unsupported() = %v, want %v", ce.Unsupported(), tt.wantUnsupported)
				}
				if got := errors.Is(err, ErrUnsupportedFormat); got != tt.wantUnsupported {
					t.Errorf("errors.Is(ErrUnsupportedFormat) = %v, want %v", got, tt.wantUnsupported)
				}
				want := MsgConversionFailed
				if tt.wantUnsupported {
					want = MsgUnsupportedFormat
				}
				if err.Error() != want {
					t.Errorf("Error() = %q, want %q", err.Error(), want)
				}
				if errors.Unwrap(err) == nil {
					t.Error("cause not kept")
				}
			})
		}
	})

	t.Run("body limit", func(t *testing.T) {
		r := NewRegistry(&DocxExtractor{MaxBody: 16})
		_, err := r.Convert(t.Context(), "big.docx", bytes.NewReader(docx))
		if !errors.Is(err, errBodyTooLong) {
			t.Errorf("error cause = %v, want errBodyTooLong", errors.Unwrap(err))
		}
	})

	t.Run("panic", func(t *testing.T) {
		r := NewRegistry(panicky{})
		_, err := r.Convert(t.Context(), "x.boom", strings.NewReader("x"))
		var ce *ConversionError
		if !errors.As(err, &ce) || ce.Message != MsgConversionFailed {
			t.Fatalf("error = %v, want generic ConversionError", err)
		}
		if strings.Contains(err.Error(), "secret") {
			t.Errorf("Error() leaks the cause: %q", err.Error())
		}
	})

	t.Run("Register", func(t *testing.T) {
		r := Default()
		r.Register(upper{})
		got, err := r.Convert(t.Context(), "a.txt", strings.NewReader("abc"))
		if err != nil || got != "ABC" {
			t.Errorf("Convert = %q, %v, want ABC", got, err)
		}
		want := []string{".docx", ".md", ".txt"}
		if got := r.Extensions(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Extensions() = %v, want %v", got, want)
		}
	})
}

func TestLocalize(t *testing.T) {
	tests := []struct {
		name string
		tag  language.Tag
		msg  string
		want string
	}{
		{"english failed", language.English, MsgConversionFailed, MsgConversionFailed},
		{"russian failed", language.Russian, MsgConversionFailed, "Ошибка преобразования файла"},
		{"russian unsupported", language.MustParse("ru-RU"), MsgUnsupportedFormat, "Формат файла не поддерживается"},
		{"fallback", language.Japanese, MsgUnsupportedFormat, MsgUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ConversionError{Message: tt.msg}
			if got := e.Localize(tt.tag); got != tt.want {
				t.Errorf("Localize(%s) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"ru-RU,ru;q=0.9,en;q=0.8", language.Russian},
		{"en-GB", language.English},
		{"de", language.English},
		{"!!!", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := MatchLanguage(tt.header); got != tt.want {
				t.Errorf("MatchLanguage(%q) = %s, want %s", tt.header, got, tt.want)
			}
		})
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"UTF-8", "UTF-16LE", "UTF-32BE", "ISO-8859-1", "ISO-8859-5", "windows-1251", "KOI8-R", "Shift_JIS", "GB-18030", "EUC-KR", "Big5", "ISO-2022-JP"} {
		t.Run(name, func(t *testing.T) {
			if lookupEncoding(name) == nil {
				t.Errorf("lookupEncoding(%q) = nil", name)
			}
		})
	}
	if enc := lookupEncoding("x-unknown"); enc != nil {
		t.Errorf("lookupEncoding(unknown) = %v, want nil", enc)
	}
}
