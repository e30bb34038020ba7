// Package icons resolves the icon shown next to a category.
package icons

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when nothing matches the category name.
const Fallback = "tag"

type rule struct {
	pattern *regexp.Regexp
	icon    string
}

// Rules are checked in order; the first match wins.
var rules = []rule{
	{regexp.MustCompile(`super|mercado|almacen`), "shopping-cart"},
	{regexp.MustCompile(`comida|rest|cafe|almuerzo`), "utensils"},
	{regexp.MustCompile(`bencin|combustible|nafta`), "fuel"},
	{regexp.MustCompile(`transp|uber|taxi|metro|bus`), "car"},
	{regexp.MustCompile(`casa|arriendo|hogar|dividendo`), "home"},
	{regexp.MustCompile(`luz|electric`), "lightbulb"},
	{regexp.MustCompile(`agua`), "droplets"},
	{regexp.MustCompile(`\bgas\b`), "flame"},
	{regexp.MustCompile(`salud|medic|farmacia`), "heart-pulse"},
	{regexp.MustCompile(`educ|colegio|universidad`), "graduation-cap"},
	{regexp.MustCompile(`entreten|netflix|spotify|cine`), "clapperboard"},
	{regexp.MustCompile(`ropa|vestuario`), "shirt"},
	{regexp.MustCompile(`viaje|vacacion`), "plane"},
	{regexp.MustCompile(`telefono|celular|internet`), "smartphone"},
	{regexp.MustCompile(`impuesto|contribucion`), "receipt"},
	{regexp.MustCompile(`mascota|veterin`), "dog"},
	{regexp.MustCompile(`deporte|gym|gimnasio`), "dumbbell"},
	{regexp.MustCompile(`banco|tarjeta|credito`), "credit-card"},
}

// Fold lowercases s and strips diacritics, so "Educación" becomes "educacion".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ForName guesses an icon from a category name.
func ForName(name string) string {
	folded := Fold(name)
	if folded == "" {
		return Fallback
	}
	for _, r := range rules {
		if r.pattern.MatchString(folded) {
			return r.icon
		}
	}
	return Fallback
}

// Resolve prefers an explicitly stored icon over the name heuristic.
func Resolve(name, stored string) string {
	if s := strings.TrimSpace(stored); s != "" {
		return s
	}
	return ForName(name)
}
