package domain

import (
	"strings"

	"github.com/biter777/countries"
)

const owidPrefix = "OWID_"

// MapCode returns the code a choropleth renderer expects for a region:
// OWID_USA -> USA. Codes without the prefix are returned unchanged.
func MapCode(regionCode string) string {
	return strings.TrimPrefix(regionCode, owidPrefix)
}

// displayName prefers the name carried by the source, then the ISO 3166 name
// for the map code, then the code itself.
func displayName(regionCode, sourceName string) string {
	if name := strings.TrimSpace(sourceName); name != "" {
		return name
	}
	code := MapCode(regionCode)
	if len(code) == 3 {
		if c := countries.ByName(code); c != countries.Unknown {
			return c.String()
		}
	}
	return regionCode
}
