// Package supplement contains the types of the supplementary JSON export, a
// list of publications with author affiliations (including GRID institution
// data) and funding information.
package supplement

import "strings"

// ExternalID is a typed identifier, e.g. {"type": "doi", "value": "10.1/x"}.
type ExternalID struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Address of a GRID institution, only the country code is of interest.
type Address struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code"`
}

// Grid is the institutional identity block attached to an affiliation.
type Grid struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Addresses []Address `json:"addresses"`
}

// Affiliation of an author. Grid is nil, if the export has no institution
// match for the affiliation string.
type Affiliation struct {
	Name string `json:"name"`
	Grid *Grid  `json:"grid"`
}

// Author with zero or more affiliations.
type Author struct {
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Affiliations []Affiliation `json:"affiliations"`
}

// Funding entry, e.g. {"org": "NSF", "country": "US"}.
type Funding struct {
	Org     string `json:"org"`
	Country string `json:"country"`
}

// Record is a single entry of the supplementary export.
type Record struct {
	ExternalIDs []ExternalID `json:"external_ids"`
	Title       string       `json:"title,omitempty"`
	Abstract    string       `json:"abstract"`
	Authors     []Author     `json:"authors"`
	Funding     []Funding    `json:"funding"`
}

// DOIs returns all non-empty values of identifiers of type doi, in order.
// The type is compared case insensitively, so "DOI" counts as well.
func (r *Record) DOIs() []string {
	var result []string
	for _, id := range r.ExternalIDs {
		if !strings.EqualFold(id.Type, "doi") || id.Value == "" {
			continue
		}
		result = append(result, id.Value)
	}
	return result
}
