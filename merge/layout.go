package merge

import (
	"errors"
	"fmt"
	"strings"
)

// MinColumns is the smallest record width we can work with: doi at index 1,
// abstract at index 4 and five trailing enrichment columns.
const MinColumns = 6

var (
	ErrShortRecord    = errors.New("record too short")
	ErrMissingColumns = errors.New("missing columns")
)

// Layout maps the columns we read and write to positions in a record. It is
// resolved once from the header row.
type Layout struct {
	Width                int
	DOI                  int
	Abstract             int
	Affiliation          int
	AuthorCountries      int
	GridIDs              int
	FundingOrganizations int
	FundingCountries     int
}

// LayoutFunc derives a layout from the header row.
type LayoutFunc func(header []string) (Layout, error)

// PositionalLayout uses fixed positions: doi is the second column, abstract
// the fifth and the last five columns are affiliation, author countries, grid
// ids, funding organizations and funding countries, in that order.
func PositionalLayout(header []string) (Layout, error) {
	w := len(header)
	if w < MinColumns {
		return Layout{}, fmt.Errorf("%w: header has %d columns, need at least %d", ErrShortRecord, w, MinColumns)
	}
	return Layout{
		Width:                w,
		DOI:                  1,
		Abstract:             4,
		Affiliation:          w - 5,
		AuthorCountries:      w - 4,
		GridIDs:              w - 3,
		FundingOrganizations: w - 2,
		FundingCountries:     w - 1,
	}, nil
}

// Columns names the header fields used by NamedLayout.
type Columns struct {
	DOI                  string `yaml:"doi"`
	Abstract             string `yaml:"abstract"`
	Affiliation          string `yaml:"affiliation"`
	AuthorCountries      string `yaml:"author_countries"`
	GridIDs              string `yaml:"grid_ids"`
	FundingOrganizations string `yaml:"funding_organizations"`
	FundingCountries     string `yaml:"funding_countries"`
}

// DefaultColumns returns the conventional header names.
func DefaultColumns() Columns {
	return Columns{
		DOI:                  "doi",
		Abstract:             "abstract",
		Affiliation:          "affiliation",
		AuthorCountries:      "author_countries",
		GridIDs:              "grid_ids",
		FundingOrganizations: "funding_organizations",
		FundingCountries:     "funding_countries",
	}
}

// NamedLayout returns a LayoutFunc resolving columns by header name, case
// insensitive. Empty names in c fall back to the default names. All columns
// must be present, otherwise the error lists the ones missing.
func NamedLayout(c Columns) LayoutFunc {
	d := DefaultColumns()
	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	c = Columns{
		DOI:                  orDefault(c.DOI, d.DOI),
		Abstract:             orDefault(c.Abstract, d.Abstract),
		Affiliation:          orDefault(c.Affiliation, d.Affiliation),
		AuthorCountries:      orDefault(c.AuthorCountries, d.AuthorCountries),
		GridIDs:              orDefault(c.GridIDs, d.GridIDs),
		FundingOrganizations: orDefault(c.FundingOrganizations, d.FundingOrganizations),
		FundingCountries:     orDefault(c.FundingCountries, d.FundingCountries),
	}
	return func(header []string) (Layout, error) {
		if len(header) < MinColumns {
			return Layout{}, fmt.Errorf("%w: header has %d columns, need at least %d", ErrShortRecord, len(header), MinColumns)
		}
		pos := make(map[string]int)
		for i, name := range header {
			if i == 0 {
				name = strings.TrimPrefix(name, "\ufeff")
			}
			key := strings.ToLower(strings.TrimSpace(name))
			if _, ok := pos[key]; !ok {
				pos[key] = i
			}
		}
		var (
			missing []string
			lookup  = func(name string) int {
				i, ok := pos[strings.ToLower(name)]
				if !ok {
					missing = append(missing, name)
					return -1
				}
				return i
			}
			l = Layout{
				Width:                len(header),
				DOI:                  lookup(c.DOI),
				Abstract:             lookup(c.Abstract),
				Affiliation:          lookup(c.Affiliation),
				AuthorCountries:      lookup(c.AuthorCountries),
				GridIDs:              lookup(c.GridIDs),
				FundingOrganizations: lookup(c.FundingOrganizations),
				FundingCountries:     lookup(c.FundingCountries),
			}
		)
		if len(missing) > 0 {
			return Layout{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
		}
		return l, nil
	}
}
