package compose

import (
	"strings"

	"github.com/mikey/auto-dictionary/internal/core"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supportedLocales = []language.Tag{
	language.English,
	language.Spanish,
	language.Catalan,
}

var labelCatalog = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, label core.Label, text string) {
		if err := b.SetString(tag, string(label), text); err != nil {
			panic(err)
		}
	}

	set(language.English, core.LabelSaved, "Saved languages for these recipients: %s")
	set(language.English, core.LabelGuess, "Guessed languages from recipient domains: %s")
	set(language.English, core.LabelNoLanguage, "No language known for these recipients")

	set(language.Spanish, core.LabelSaved, "Idiomas guardados para estos destinatarios: %s")
	set(language.Spanish, core.LabelGuess, "Idiomas deducidos de los dominios de los destinatarios: %s")
	set(language.Spanish, core.LabelNoLanguage, "No hay idioma conocido para estos destinatarios")

	set(language.Catalan, core.LabelSaved, "Idiomes desats per a aquests destinataris: %s")
	set(language.Catalan, core.LabelGuess, "Idiomes deduïts dels dominis dels destinataris: %s")
	set(language.Catalan, core.LabelNoLanguage, "No hi ha cap idioma conegut per a aquests destinataris")

	return b
}

// LabelPrinter renders labels in the user interface locale
type LabelPrinter struct {
	tag     language.Tag
	printer *message.Printer
	namer   display.Namer
}

// NewLabelPrinter creates a printer for locale, falling back to English
func NewLabelPrinter(locale string) *LabelPrinter {
	matcher := language.NewMatcher(supportedLocales)
	tag, _ := language.MatchStrings(matcher, locale)
	base, _ := tag.Base()
	tag = language.Make(base.String())

	return &LabelPrinter{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(labelCatalog)),
		namer:   display.Tags(tag),
	}
}

// Locale returns the matched locale
func (p *LabelPrinter) Locale() language.Tag {
	return p.tag
}

// Render formats a label with the languages it refers to
func (p *LabelPrinter) Render(label core.Label, languages core.LanguageSet) string {
	if label == core.LabelNoLanguage {
		return p.printer.Sprintf(string(label))
	}
	return p.printer.Sprintf(string(label), p.LanguageNames(languages))
}

// LanguageNames lists the languages by their display name, comma separated.
// Codes that are not valid language tags are shown as is.
func (p *LabelPrinter) LanguageNames(languages core.LanguageSet) string {
	names := make([]string, 0, len(languages))
	for _, code := range languages {
		tag, err := language.Parse(code)
		if err != nil {
			names = append(names, code)
			continue
		}
		name := p.namer.Name(tag)
		if name == "" {
			name = code
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
