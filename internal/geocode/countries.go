package geocode

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

type countryEntry struct {
	Code  string   `yaml:"code"`
	Names []string `yaml:"names"`
}

// countryTable maps lowercase country names and ISO codes to ISO codes.
type countryTable struct {
	byName   map[string]string
	codes    map[string]struct{}
	maxWords int
}

var countries = mustLoadCountries(countriesYAML)

func mustLoadCountries(data []byte) *countryTable {
	t, err := loadCountries(data)
	if err != nil {
		panic(err)
	}
	return t
}

func loadCountries(data []byte) (*countryTable, error) {
	var entries []countryEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing country table: %w", err)
	}

	t := &countryTable{byName: map[string]string{}, codes: map[string]struct{}{}}
	for _, e := range entries {
		code := strings.ToLower(strings.TrimSpace(e.Code))
		if len(code) != 2 {
			return nil, fmt.Errorf("country table: bad code %q", e.Code)
		}
		t.codes[code] = struct{}{}
		for _, n := range e.Names {
			n = Normalize(n)
			t.byName[n] = code
			if w := len(strings.Fields(n)); w > t.maxWords {
				t.maxWords = w
			}
		}
	}
	return t, nil
}

// Normalize is the cache key for a query: trimmed, lowercased, with runs of
// whitespace collapsed to one space.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// DetectCountry looks for a trailing country in query. A country name may
// follow a comma or the last space; an ISO code is only accepted after a
// comma. When one is found it is stripped from the search text and its code
// returned. The search text is never left empty.
func DetectCountry(query string) (search, code string) {
	return countries.detect(query)
}

func (t *countryTable) detect(query string) (string, string) {
	q := strings.Join(strings.Fields(query), " ")

	if i := strings.LastIndex(q, ","); i >= 0 {
		head := strings.TrimSpace(q[:i])
		tail := Normalize(q[i+1:])
		if head != "" {
			if code, ok := t.byName[tail]; ok {
				return head, code
			}
			if _, ok := t.codes[tail]; ok {
				return head, tail
			}
		}
	}

	words := strings.Fields(q)
	for k := t.maxWords; k >= 1; k-- {
		if len(words) <= k {
			continue
		}
		tail := Normalize(strings.Join(words[len(words)-k:], " "))
		if code, ok := t.byName[tail]; ok {
			head := strings.TrimRight(strings.Join(words[:len(words)-k], " "), ",")
			if strings.TrimSpace(head) == "" {
				break
			}
			return head, code
		}
	}
	return q, ""
}
