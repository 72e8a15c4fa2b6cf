package mapper

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Country is one entry of the built-in country catalog.
type Country struct {
	Code string
	Name string
}

// countries maps each ISO 3166-1 alpha-2 code to its display name and
// accepted aliases.
var countries = map[string][]string{
	"AE": {"United Arab Emirates", "UAE", "Emirates"},
	"AU": {"Australia"},
	"BR": {"Brazil", "Brasil"},
	"BY": {"Belarus"},
	"CA": {"Canada"},
	"CN": {"China", "People's Republic of China", "PRC"},
	"DE": {"Germany", "Deutschland"},
	"ES": {"Spain", "España"},
	"FR": {"France"},
	"GB": {"United Kingdom", "UK", "Great Britain", "Britain", "England", "Scotland", "Wales"},
	"GH": {"Ghana"},
	"IE": {"Ireland", "Republic of Ireland"},
	"IN": {"India"},
	"IT": {"Italy", "Italia"},
	"JP": {"Japan"},
	"KE": {"Kenya"},
	"MX": {"Mexico", "México"},
	"NG": {"Nigeria"},
	"NL": {"Netherlands", "The Netherlands", "Holland"},
	"NZ": {"New Zealand"},
	"PT": {"Portugal"},
	"SG": {"Singapore"},
	"US": {"United States", "USA", "US", "United States of America", "America"},
	"ZA": {"South Africa", "RSA"},
}

// countryAliases is the case-folded alias index built from countries.
var countryAliases = buildAliases()

func buildAliases() map[string]string {
	fold := cases.Fold()
	idx := make(map[string]string)
	for code, names := range countries {
		idx[fold.String(code)] = code
		for _, n := range names {
			idx[fold.String(n)] = code
		}
	}
	return idx
}

// CountryCode resolves a country name, alias or code to its alpha-2 code.
// Matching ignores case and surrounding space. Unknown names resolve to "".
func CountryCode(name string) string {
	key := strings.TrimSpace(name)
	if key == "" {
		return ""
	}
	return countryAliases[cases.Fold().String(key)]
}

// Countries returns the catalog ordered by code.
func Countries() []Country {
	out := make([]Country, 0, len(countries))
	for code, names := range countries {
		out = append(out, Country{Code: code, Name: names[0]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
