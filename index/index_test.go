package index

import (
	"errors"
	"strings"
	"testing"

	"github.com/miku/skmerge/schema/supplement"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func record(title string, ids ...supplement.ExternalID) supplement.Record {
	return supplement.Record{Title: title, ExternalIDs: ids}
}

func doi(v string) supplement.ExternalID {
	return supplement.ExternalID{Type: "doi", Value: v}
}

// scan is the straightforward linear lookup, which the map based index must
// agree with.
func scan(records []supplement.Record, doi string) *supplement.Record {
	for i := range records {
		for _, id := range records[i].ExternalIDs {
			if id.Type == "doi" && strings.ToLower(id.Value) == strings.ToLower(doi) {
				return &records[i]
			}
		}
	}
	return nil
}

func TestFind(t *testing.T) {
	records := []supplement.Record{
		record("no ids"),
		record("pmid only", supplement.ExternalID{Type: "pmid", Value: "123"}),
		record("upper", doi("10.1/ABC")),
		record("two", supplement.ExternalID{Type: "pmid", Value: "1"}, doi("10.2/x")),
		record("dup", doi("10.1/abc")),
		record("missing type", supplement.ExternalID{Value: "10.3/y"}),
		record("missing value", supplement.ExternalID{Type: "doi"}),
		record("type case", supplement.ExternalID{Type: "DOI", Value: "10.4/Z"}),
	}
	idx := New(records)
	var cases = []struct {
		doi   string
		title string
		found bool
	}{
		{"10.1/abc", "upper", true},
		{"10.1/ABC", "upper", true},
		{"10.1/AbC", "upper", true},
		{"10.2/x", "two", true},
		{"10.2/X", "two", true},
		{"10.3/y", "", false},
		{"10.4/z", "type case", true},
		{"123", "", false},
		{"", "", false},
		{"10.9/unknown", "", false},
	}
	for _, c := range cases {
		r, ok := idx.Find(c.doi)
		if ok != c.found {
			t.Fatalf("%q: got found=%v, want %v", c.doi, ok, c.found)
		}
		if !ok {
			continue
		}
		if r.Title != c.title {
			t.Errorf("%q: got %q, want %q", c.doi, r.Title, c.title)
		}
		if c.title != "type case" {
			if want := scan(records, c.doi); want != r {
				t.Errorf("%q: map lookup disagrees with linear scan", c.doi)
			}
		}
	}
	if idx.Duplicates() != 1 {
		t.Errorf("got %d duplicates, want 1", idx.Duplicates())
	}
	if idx.Len() != 3 {
		t.Errorf("got %d keys, want 3", idx.Len())
	}
	if idx.Records() != len(records) {
		t.Errorf("got %d records, want %d", idx.Records(), len(records))
	}
}

func TestFindSameDOITwiceInOneRecord(t *testing.T) {
	idx := New([]supplement.Record{record("a", doi("10.1/a"), doi("10.1/A"))})
	if idx.Duplicates() != 0 {
		t.Errorf("got %d duplicates, want 0", idx.Duplicates())
	}
	if _, ok := idx.Find("10.1/a"); !ok {
		t.Errorf("expected match")
	}
}

func TestLoad(t *testing.T) {
	var cases = []struct {
		help     string
		input    string
		err      error
		invalid  bool
		records  int
		skipped  int
		findDOI  string
		findOK   bool
		abstract string
	}{
		{
			help:    "empty document",
			input:   "",
			invalid: true,
		},
		{
			help:  "not an array",
			input: `{"external_ids": []}`,
			err:   ErrNotArray,
		},
		{
			help:    "broken json",
			input:   `[{"external_ids": [}`,
			invalid: true,
		},
		{
			help:  "trailing data",
			input: `[{"external_ids": [{"type": "doi", "value": "10.1/x"}]}] {"broken": `,
			err:   ErrTrailingData,
		},
		{
			help:  "concatenated documents",
			input: `[] []`,
			err:   ErrTrailingData,
		},
		{
			help:    "trailing whitespace",
			input:   "[]\n\n  ",
			records: 0,
		},
		{
			help:    "empty list",
			input:   `[]`,
			records: 0,
		},
		{
			help: "regular entries",
			input: `[
				{"external_ids": [{"type": "doi", "value": "10.1/X"}], "abstract": "A"},
				{"external_ids": [{"type": "doi", "value": "10.2/y"}]}
			]`,
			records:  2,
			findDOI:  "10.1/x",
			findOK:   true,
			abstract: "A",
		},
		{
			help: "malformed entries are skipped",
			input: `[
				{"external_ids": "10.1/x"},
				{"authors": null},
				null,
				{"external_ids": [{"value": "10.3/z"}]},
				{"external_ids": [{"type": "doi", "value": "10.2/y"}], "abstract": "B"}
			]`,
			records:  4,
			skipped:  1,
			findDOI:  "10.2/Y",
			findOK:   true,
			abstract: "B",
		},
	}
	for _, c := range cases {
		t.Run(c.help, func(t *testing.T) {
			idx, err := Load(strings.NewReader(c.input))
			switch {
			case c.err != nil:
				if !errors.Is(err, c.err) {
					t.Fatalf("got %v, want %v", err, c.err)
				}
				return
			case c.invalid:
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if idx.Records() != c.records {
				t.Errorf("got %d records, want %d", idx.Records(), c.records)
			}
			if idx.Skipped() != c.skipped {
				t.Errorf("got %d skipped, want %d", idx.Skipped(), c.skipped)
			}
			if c.findDOI == "" {
				return
			}
			r, ok := idx.Find(c.findDOI)
			if ok != c.findOK {
				t.Fatalf("got found=%v, want %v", ok, c.findOK)
			}
			if r.Abstract != c.abstract {
				t.Errorf("got abstract %q, want %q", r.Abstract, c.abstract)
			}
		})
	}
}

func TestLoadLogsInputPositions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	input := `[
		{"external_ids": "broken"},
		{"external_ids": [{"type": "doi", "value": "10.1/x"}]},
		{"external_ids": "broken"},
		{"external_ids": [{"type": "doi", "value": "10.1/X"}]}
	]`
	idx, err := Load(strings.NewReader(input), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if idx.Duplicates() != 1 || idx.Skipped() != 2 {
		t.Fatalf("got %d duplicates, %d skipped", idx.Duplicates(), idx.Skipped())
	}
	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level != logrus.DebugLevel {
			continue
		}
		found = true
		if e.Data["entry"] != 3 || e.Data["first"] != 1 {
			t.Errorf("got entry=%v first=%v, want 3 and 1", e.Data["entry"], e.Data["first"])
		}
	}
	if !found {
		t.Fatalf("duplicate not logged")
	}
	var warned []interface{}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Data["entry"])
		}
	}
	if len(warned) != 2 || warned[0] != 0 || warned[1] != 2 {
		t.Errorf("got skipped entries %v, want [0 2]", warned)
	}
}
