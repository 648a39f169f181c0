// Package merge fills empty affiliation, country, grid, funding and abstract
// columns of a CSV table with values from matching supplementary records.
//
// A value is only ever written into an empty cell, existing content is never
// overwritten. The first row is treated as header and copied verbatim.
package merge

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/miku/skmerge/normal"
	"github.com/miku/skmerge/schema/supplement"
	"github.com/sirupsen/logrus"
)

// Finder looks up a supplementary record by DOI.
type Finder interface {
	Find(doi string) (*supplement.Record, bool)
}

// Summary counts what happened during a run. The header row is not counted.
type Summary struct {
	Total                int // rows, excluding header
	WithDOI              int
	Matched              int
	AuthorCountriesAdded int
	AffiliationAdded     int
	FundingAdded         int
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "total records: %d\n", s.Total)
	fmt.Fprintf(&sb, "total records with doi: %d\n", s.WithDOI)
	fmt.Fprintf(&sb, "number of found records: %d\n", s.Matched)
	fmt.Fprintf(&sb, "number of author countries added: %d\n", s.AuthorCountriesAdded)
	fmt.Fprintf(&sb, "number of affiliation field added: %d\n", s.AffiliationAdded)
	fmt.Fprintf(&sb, "number of funding added: %d\n", s.FundingAdded)
	return sb.String()
}

// WriteTo writes the six counters, one per line.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

// Option configures a Merger.
type Option func(*Merger)

// WithLayout sets the function to derive column positions from the header.
func WithLayout(f LayoutFunc) Option {
	return func(m *Merger) {
		if f != nil {
			m.layoutFunc = f
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// Merger streams CSV records from a reader to a writer, enriching rows along
// the way. A Merger is not safe for concurrent use.
type Merger struct {
	finder     Finder
	layoutFunc LayoutFunc
	logger     logrus.FieldLogger
}

// New returns a merger looking up records with f, using PositionalLayout
// unless configured otherwise.
func New(f Finder, opts ...Option) *Merger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	m := &Merger{
		finder:     f,
		layoutFunc: PositionalLayout,
		logger:     l,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run reads all records from r and writes them, possibly enriched, to w. On
// error, the summary reflects the rows processed so far and w may contain a
// partial table. A blank line is a row without columns and is rejected, like
// any other short row.
func (m *Merger) Run(r io.Reader, w io.Writer) (Summary, error) {
	var (
		summary Summary
		cnt     = &countingReader{r: r}
		cr      = csv.NewReader(cnt)
		cw      = csv.NewWriter(w)
	)
	cr.LazyQuotes = true
	defer cw.Flush()
	header, err := cr.Read()
	if err == io.EOF {
		if cnt.n > 0 {
			return summary, fmt.Errorf("%w: header is blank", ErrShortRecord)
		}
		return summary, nil
	}
	if err != nil {
		return summary, fmt.Errorf("read header: %w", err)
	}
	if line, _ := cr.FieldPos(0); line != 1 {
		return summary, fmt.Errorf("%w: header is blank", ErrShortRecord)
	}
	layout, err := m.layoutFunc(header)
	if err != nil {
		return summary, fmt.Errorf("layout: %w", err)
	}
	if err := cw.Write(header); err != nil {
		return summary, fmt.Errorf("write header: %w", err)
	}
	next, offset := lastLine(cr, header)+1, cr.InputOffset()
	for {
		record, err := cr.Read()
		if err == io.EOF {
			if cnt.n > offset {
				return summary, fmt.Errorf("%w: row %d is blank", ErrShortRecord, summary.Total+1)
			}
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read record: %w", err)
		}
		if line, _ := cr.FieldPos(0); line != next {
			return summary, fmt.Errorf("%w: row %d is blank", ErrShortRecord, summary.Total+1)
		}
		if err := m.enrich(layout, record, &summary); err != nil {
			return summary, err
		}
		if err := cw.Write(record); err != nil {
			return summary, fmt.Errorf("write record: %w", err)
		}
		next, offset = lastLine(cr, record)+1, cr.InputOffset()
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return summary, fmt.Errorf("flush: %w", err)
	}
	return summary, nil
}

// lastLine returns the input line the record just read ends on. Quoted fields
// may span lines.
func lastLine(cr *csv.Reader, record []string) int {
	i := len(record) - 1
	line, _ := cr.FieldPos(i)
	return line + strings.Count(record[i], "\n")
}

// countingReader counts bytes read, so we can tell whether the csv reader
// skipped over trailing blank lines.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// enrich modifies record in place and updates the summary.
func (m *Merger) enrich(layout Layout, record []string, s *Summary) error {
	if len(record) < MinColumns || len(record) < layout.Width {
		return fmt.Errorf("%w: row %d has %d columns", ErrShortRecord, s.Total+1, len(record))
	}
	s.Total++
	doi := normal.DOIKey.Normalize(record[layout.DOI])
	if doi == "" {
		return nil
	}
	s.WithDOI++
	entry, ok := m.finder.Find(doi)
	if !ok {
		return nil
	}
	s.Matched++
	fields := Derive(entry)
	m.logger.WithFields(logrus.Fields{
		"doi":         doi,
		"affiliation": fields.Affiliation,
		"funding":     fields.FundingOrganizations,
	}).Debug("matched")
	if fields.AuthorCountries != "" {
		s.AuthorCountriesAdded++
	}
	if fields.FundingOrganizations != "" {
		s.FundingAdded++
	}
	if record[layout.Affiliation] == "" {
		s.AffiliationAdded++
	}
	fillEmpty(record, layout.Affiliation, fields.Affiliation)
	fillEmpty(record, layout.AuthorCountries, fields.AuthorCountries)
	fillEmpty(record, layout.GridIDs, fields.GridIDs)
	fillEmpty(record, layout.FundingOrganizations, fields.FundingOrganizations)
	fillEmpty(record, layout.FundingCountries, fields.FundingCountries)
	fillEmpty(record, layout.Abstract, fields.Abstract)
	return nil
}

// fillEmpty sets record[i] to v, if the cell is empty and v is not.
func fillEmpty(record []string, i int, v string) {
	if record[i] == "" && v != "" {
		record[i] = v
	}
}
