// Package skmerge enriches tabular publication records with affiliation and
// funding details from a supplementary JSON export, joined on DOI.
package skmerge

const (
	Version = "0.1.0"
	AppName = "skmerge"
)
