package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	camelSplit = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// RemoveAccents removes accents from a string, converting accented characters to their base forms
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SplitWords splits a string into words, handling camelCase, PascalCase, snake_case and kebab-case
func SplitWords(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = RemoveAccents(s)
	s = camelSplit.ReplaceAllString(s, "$1 $2")

	parts := nonAlnum.Split(s, -1)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// ToPascalCase converts a string to PascalCase, lowercasing the tail of every word.
// It is used for operation and client names, where "list_pets" and "listPets"
// must land on the same identifier.
func ToPascalCase(s string) string {
	parts := SplitWords(s)
	if len(parts) == 0 {
		return ""
	}

	b := strings.Builder{}
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		if len(p) > 1 {
			b.WriteString(strings.ToLower(p[1:]))
		}
	}
	return b.String()
}

// ToCamelCase converts a string to camelCase
func ToCamelCase(s string) string {
	p := ToPascalCase(s)
	if p == "" {
		return ""
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// ToTypeName turns a schema name into a type identifier. Unlike ToPascalCase it
// keeps the casing inside each word, so "PetDTO" stays "PetDTO" and
// "order.line_item" becomes "OrderLineItem".
func ToTypeName(s string) string {
	s = RemoveAccents(strings.TrimSpace(s))
	b := strings.Builder{}
	for _, p := range nonAlnum.Split(s, -1) {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	name := b.String()
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// ToIdentifier turns a wire name ("X-Request-ID", "pet_id") into a
// lowerCamel identifier that keeps inner casing ("xRequestID", "petId").
func ToIdentifier(s string) string {
	name := ToTypeName(s)
	if name == "" {
		return ""
	}
	if name[0] == '_' {
		return name
	}
	rs := []rune(name)
	// Lower a leading acronym as a whole: "URLPath" -> "urlPath".
	i := 0
	for i < len(rs) && unicode.IsUpper(rs[i]) {
		if i > 0 && i+1 < len(rs) && unicode.IsLower(rs[i+1]) {
			break
		}
		rs[i] = unicode.ToLower(rs[i])
		i++
	}
	return string(rs)
}
