package geo

import "strings"

// UnknownCountry is the name of an undeterminable country.
const UnknownCountry = "Onbekend"

// countryNames maps NUTS country prefixes to Dutch country names.
var countryNames = map[string]string{
	"AL": "Albanië",
	"AT": "Oostenrijk",
	"BE": "België",
	"BG": "Bulgarije",
	"CH": "Zwitserland",
	"CY": "Cyprus",
	"CZ": "Tsjechië",
	"DE": "Duitsland",
	"DK": "Denemarken",
	"EE": "Estland",
	"EL": "Griekenland",
	"ES": "Spanje",
	"FI": "Finland",
	"FR": "Frankrijk",
	"HR": "Kroatië",
	"HU": "Hongarije",
	"IE": "Ierland",
	"IS": "IJsland",
	"IT": "Italië",
	"LI": "Liechtenstein",
	"LT": "Litouwen",
	"LU": "Luxemburg",
	"LV": "Letland",
	"ME": "Montenegro",
	"MK": "Noord-Macedonië",
	"MT": "Malta",
	"NL": "Nederland",
	"NO": "Noorwegen",
	"PL": "Polen",
	"PT": "Portugal",
	"RO": "Roemenië",
	"RS": "Servië",
	"SE": "Zweden",
	"SI": "Slovenië",
	"SK": "Slowakije",
	"TR": "Turkije",
	"UK": "Verenigd Koninkrijk",
	"GB": "Verenigd Koninkrijk",
}

// CountryOf returns the two-letter country prefix of a regional code, or ""
// when the code is too short to carry one.
func CountryOf(region string) string {
	region = strings.TrimSpace(region)
	if len(region) < 2 {
		return ""
	}
	return strings.ToUpper(region[:2])
}

// CountryName returns the Dutch name for a regional or country code. Unknown
// prefixes are returned as-is.
func CountryName(code string) string {
	prefix := CountryOf(code)
	if prefix == "" {
		return UnknownCountry
	}
	if name, ok := countryNames[prefix]; ok {
		return name
	}
	return prefix
}
