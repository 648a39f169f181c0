package merge

import (
	"strings"

	"github.com/miku/skmerge/normal"
	"github.com/miku/skmerge/schema/supplement"
)

// Separator between multiple values in a single cell.
const Separator = ";"

// Fields are the values derived from a supplementary record. Each list valued
// field is deduplicated, keeps first occurrence order and is joined with
// Separator.
type Fields struct {
	Affiliation          string
	AuthorCountries      string
	GridIDs              string
	FundingOrganizations string
	FundingCountries     string
	Abstract             string
}

// orderedSet keeps distinct, non-empty strings in insertion order.
type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func (s *orderedSet) Add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

func (s *orderedSet) Join(sep string) string {
	return strings.Join(s.values, sep)
}

// Derive extracts affiliation, grid and funding information from a record.
// Empty or null values do not contribute.
func Derive(r *supplement.Record) Fields {
	var affiliations, grids, countries, orgs, fundingCountries orderedSet
	for _, author := range r.Authors {
		for _, aff := range author.Affiliations {
			if aff.Name != "" {
				affiliations.Add(normal.Affiliation.Normalize(aff.Name))
			}
			if aff.Grid == nil {
				continue
			}
			grids.Add(aff.Grid.ID)
			for _, addr := range aff.Grid.Addresses {
				countries.Add(addr.CountryCode)
			}
		}
	}
	for _, f := range r.Funding {
		orgs.Add(f.Org)
		fundingCountries.Add(f.Country)
	}
	return Fields{
		Affiliation:          affiliations.Join(Separator),
		AuthorCountries:      countries.Join(Separator),
		GridIDs:              grids.Join(Separator),
		FundingOrganizations: orgs.Join(Separator),
		FundingCountries:     fundingCountries.Join(Separator),
		Abstract:             r.Abstract,
	}
}
