// Package index provides DOI lookup over a supplementary record collection.
//
// DOI are compared case insensitively. If more than one record carries the
// same DOI, the first record in collection order wins.
package index

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/miku/skmerge/normal"
	"github.com/miku/skmerge/schema/supplement"
	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotArray     = errors.New("supplementary data is not a JSON array")
	ErrTrailingData = errors.New("supplementary data has extra data after the JSON array")
)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used to report skipped and duplicate entries.
func WithLogger(l logrus.FieldLogger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.logger = l
		}
	}
}

// Index answers "which record has this DOI". The collection is held
// read-only after construction.
type Index struct {
	records    []supplement.Record
	byDOI      map[string]int // folded doi -> position in records
	duplicates int
	skipped    int
	logger     logrus.FieldLogger
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New builds an index over records. Records without any DOI are kept in the
// collection, but cannot be found.
func New(records []supplement.Record, opts ...Option) *Index {
	return build(records, nil, opts...)
}

// build indexes records; entries, if not nil, holds the position of each
// record in the input document, used when logging.
func build(records []supplement.Record, entries []int, opts ...Option) *Index {
	idx := &Index{
		records: records,
		byDOI:   make(map[string]int),
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	entry := func(i int) int {
		if entries == nil {
			return i
		}
		return entries[i]
	}
	for i := range records {
		for _, doi := range records[i].DOIs() {
			key := normal.DOIKey.Normalize(doi)
			if j, ok := idx.byDOI[key]; ok {
				if j != i {
					idx.duplicates++
					idx.logger.WithFields(logrus.Fields{
						"doi":   doi,
						"entry": entry(i),
						"first": entry(j),
					}).Debug("duplicate doi, keeping first entry")
				}
				continue
			}
			idx.byDOI[key] = i
		}
	}
	return idx
}

// Load reads a JSON array of records from r and builds an index. Elements
// that cannot be decoded into a record are skipped and counted; a document
// that is not valid JSON or not an array is an error.
func Load(r io.Reader, opts ...Option) (*Index, error) {
	var (
		doc  json.RawMessage
		dec  = json.NewDecoder(r)
		rest json.RawMessage
	)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode supplementary data: %w", err)
	}
	if err := dec.Decode(&rest); err != io.EOF {
		return nil, ErrTrailingData
	}
	if b := bytes.TrimSpace(doc); len(b) == 0 || b[0] != '[' {
		return nil, ErrNotArray
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(doc, &entries); err != nil {
		return nil, fmt.Errorf("decode supplementary data: %w", err)
	}
	var (
		records   = make([]supplement.Record, 0, len(entries))
		positions = make([]int, 0, len(entries))
		skipped   []int
		errs      []error
	)
	for i, entry := range entries {
		var record supplement.Record
		if err := json.Unmarshal(entry, &record); err != nil {
			skipped = append(skipped, i)
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
		positions = append(positions, i)
	}
	idx := build(records, positions, opts...)
	idx.skipped = len(skipped)
	for k, i := range skipped {
		idx.logger.WithFields(logrus.Fields{
			"entry": i,
			"err":   errs[k],
		}).Warn("skipping malformed supplementary entry")
	}
	return idx, nil
}

// Find returns the record carrying the given DOI, if any.
func (idx *Index) Find(doi string) (*supplement.Record, bool) {
	if doi == "" {
		return nil, false
	}
	i, ok := idx.byDOI[normal.DOIKey.Normalize(doi)]
	if !ok {
		return nil, false
	}
	return &idx.records[i], true
}

// Len returns the number of distinct DOI in the index.
func (idx *Index) Len() int { return len(idx.byDOI) }

// Records returns the number of records in the collection.
func (idx *Index) Records() int { return len(idx.records) }

// Duplicates returns the number of DOI occurrences shadowed by an earlier
// record.
func (idx *Index) Duplicates() int { return idx.duplicates }

// Skipped returns the number of entries that could not be decoded.
func (idx *Index) Skipped() int { return idx.skipped }
