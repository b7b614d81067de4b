package flatui

import (
	gtlang "github.com/go-text/typesetting/language"
	"golang.org/x/text/language"
)

// defaultLanguage is the line-break language used when a locale's
// language cannot be resolved.
const defaultLanguage = "en"

// LocaleTable resolves a BCP 47 locale or language tag to the script
// and layout direction text in that locale is written with.
type LocaleTable interface {
	// Lookup returns the four-letter script code and layout direction
	// for a locale. ok is false when the locale cannot be resolved; the
	// caller then keeps its current settings.
	Lookup(locale string) (script string, direction TextLayoutDirection, ok bool)
}

// rtlScripts lists the scripts written right to left.
var rtlScripts = map[string]bool{
	"Arab": true,
	"Hebr": true,
	"Thaa": true,
	"Syrc": true,
	"Nkoo": true,
	"Adlm": true,
}

// TagLocaleTable is the default LocaleTable, backed by
// golang.org/x/text/language. The script comes from the tag itself when
// present ("sr-Latn") and from likely-subtag inference otherwise
// ("ar" resolves to Arab); the direction follows the script.
type TagLocaleTable struct{}

// Lookup implements the LocaleTable interface.
func (TagLocaleTable) Lookup(locale string) (string, TextLayoutDirection, bool) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", TextLayoutDirectionLTR, false
	}
	script, _ := tag.Script()
	code := script.String()
	if code == "Zzzz" {
		return "", TextLayoutDirectionLTR, false
	}
	dir := TextLayoutDirectionLTR
	if rtlScripts[code] {
		dir = TextLayoutDirectionRTL
	}
	return code, dir, true
}

// scriptTag packs a four-letter script code ("Latn", "Arab") into the
// shaper's big-endian script tag. Short codes pad with spaces.
func scriptTag(code string) gtlang.Script {
	var tag uint32
	for i := 0; i < 4; i++ {
		c := byte(' ')
		if i < len(code) {
			c = code[i]
		}
		tag = tag<<8 | uint32(c)
	}
	return gtlang.Script(tag)
}
