package convert

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// User facing messages. They double as catalog keys.
const (
	MsgConversionFailed  = "Failed to convert the file"
	MsgUnsupportedFormat = "File format is not supported"
)

// ErrUnsupportedFormat is the cause of a ConversionError when no extractor
// handles the file's extension.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ConversionError is returned by [Registry.Convert].
type ConversionError struct {
	// Message is one of the Msg constants.
	Message string
	err     error
}

func (e *ConversionError) Error() string {
	return e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.err
}

// Unsupported reports whether the error is due to an unknown extension.
func (e *ConversionError) Unsupported() bool {
	return errors.Is(e.err, ErrUnsupportedFormat)
}

// Localize returns the message translated for tag, English when no better
// match exists.
func (e *ConversionError) Localize(tag language.Tag) string {
	_, i, _ := matcher.Match(tag)
	return message.NewPrinter(supported[i], message.Catalog(messages)).Sprintf(e.Message)
}

// MatchLanguage returns the best supported language for an Accept-Language
// header value.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, i, _ := matcher.Match(tags...)
	return supported[i]
}

var (
	supported = []language.Tag{language.English, language.Russian}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, m := range []struct {
		tag       language.Tag
		key, text string
	}{
		{language.English, MsgConversionFailed, MsgConversionFailed},
		{language.English, MsgUnsupportedFormat, MsgUnsupportedFormat},
		{language.Russian, MsgConversionFailed, "Ошибка преобразования файла"},
		{language.Russian, MsgUnsupportedFormat, "Формат файла не поддерживается"},
	} {
		if err := b.SetString(m.tag, m.key, m.text); err != nil {
			panic(err)
		}
	}
	return b
}
