// Package syslog5424 indexes parsed RFC 5424 events for search.
package syslog5424

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/mapping"

	// Analysis components named by buildIndexMapping.
	_ "github.com/blevesearch/bleve/analysis/analyzer/custom"
	_ "github.com/blevesearch/bleve/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/analysis/tokenizer/regexp"
)

const maxSearchHitSize = 10000

// DocID is a string, with the following configuration. It's 32-characters long, encoding 2
// 64-bit unsigned integers. When sorting DocIDs, the first 16 characters, reading from the
// left hand side represent the most significant 64-bit number. And therefore the next 16
// characters represent the least-significant 64-bit number.
type DocID string
type DocIDs []DocID

func (a DocIDs) Len() int { return len(a) }
func (a DocIDs) Less(i, j int) bool {
	x := a[i]
	y := a[j]

	mustParse := func(s string) uint64 {
		w, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			panic(fmt.Sprintf("failed to parse 64-bit word: %s", err.Error()))
		}
		return w
	}

	msw0 := mustParse(string(x[0:16]))
	lsw0 := mustParse(string(x[16:32]))
	msw1 := mustParse(string(y[0:16]))
	lsw1 := mustParse(string(y[16:32]))

	if msw0 == msw1 {
		return lsw0 < lsw1
	}
	return msw0 < msw1
}
func (a DocIDs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

// Document specifies the interface required by an object if it is to be indexed.
type Document interface {
	ID() DocID
	Data() interface{}
	Source() []byte
}

// Index is a bleve index of parsed events. The raw line of every event is
// kept alongside, so search results can be returned as received.
// Indexing operations are not goroutine safe.
type Index struct {
	path string
	b    bleve.Index
}

// OpenIndex opens the index at path, creating an empty one if no data
// exists there.
func OpenIndex(path string) (*Index, error) {
	i := &Index{path: path}

	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check existence of index at %s: %s", path, err.Error())
	} else if os.IsNotExist(err) {
		m, err := buildIndexMapping()
		if err != nil {
			return nil, err
		}
		i.b, err = bleve.New(path, m)
		if err != nil {
			return nil, err
		}
	} else {
		i.b, err = bleve.Open(path)
		if err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Path returns the path to storage for the index.
func (i *Index) Path() string { return i.path }

// Index indexes a slice of Documents.
func (i *Index) Index(documents []Document) error {
	batch := i.b.NewBatch()
	for _, d := range documents {
		if err := batch.Index(string(d.ID()), d.Data()); err != nil {
			return err
		}
		batch.SetInternal([]byte(d.ID()), d.Source())
	}
	return i.b.Batch(batch)
}

// IndexEvents indexes a batch of Events.
func (i *Index) IndexEvents(events []*Event) error {
	documents := make([]Document, 0, len(events))
	for _, e := range events {
		documents = append(documents, e)
	}
	return i.Index(documents)
}

// Search performs a search of the index using the given query string.
// Returns Doc IDs in sorted order, ascending.
func (i *Index) Search(q string) (DocIDs, error) {
	stats.Add("queriesRx", 1)
	query := bleve.NewQueryStringQuery(q)
	searchRequest := bleve.NewSearchRequest(query)
	searchRequest.Size = maxSearchHitSize
	searchResults, err := i.b.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	docIDs := make(DocIDs, 0, len(searchResults.Hits))
	for _, d := range searchResults.Hits {
		docIDs = append(docIDs, DocID(d.ID))
	}
	sort.Sort(docIDs)
	return docIDs, nil
}

// Document returns the source from the index for the given ID.
func (i *Index) Document(id DocID) ([]byte, error) {
	source, err := i.b.GetInternal([]byte(id))
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return source, nil
}

// Total returns the number of documents in the index.
func (i *Index) Total() (uint64, error) {
	return i.b.DocCount()
}

// Status returns status information about the index.
func (i *Index) Status() (map[string]interface{}, error) {
	n, err := i.Total()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":      i.path,
		"documents": n,
	}, nil
}

// Close closes the index.
func (i *Index) Close() error {
	return i.b.Close()
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	var err error

	// Create the index mapping, configure the analyzer, and set as default.
	indexMapping := bleve.NewIndexMapping()
	err = indexMapping.AddCustomTokenizer("syslog_tk",
		map[string]interface{}{
			"regexp": `[^\W_]+`,
			"type":   `regexp`,
		})
	if err != nil {
		return nil, err
	}
	err = indexMapping.AddCustomAnalyzer("syslog",
		map[string]interface{}{
			"type":          `custom`,
			"char_filters":  []interface{}{},
			"tokenizer":     `syslog_tk`,
			"token_filters": []interface{}{`to_lower`},
		})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = "syslog"

	// Free text is searchable without naming a field; header fields must be
	// named, e.g. AppName:sshd.
	textInAll := bleve.NewTextFieldMapping()
	textInAll.Store = false
	textInAll.IncludeInAll = true
	textInAll.IncludeTermVectors = false

	headerJustIndexed := bleve.NewTextFieldMapping()
	headerJustIndexed.Store = false
	headerJustIndexed.IncludeInAll = false
	headerJustIndexed.IncludeTermVectors = false

	timeJustIndexed := bleve.NewDateTimeFieldMapping()
	timeJustIndexed.Store = false
	timeJustIndexed.IncludeInAll = false
	timeJustIndexed.IncludeTermVectors = false

	eventMapping := bleve.NewDocumentMapping()
	eventMapping.AddFieldMappingsAt("Message", textInAll)
	eventMapping.AddFieldMappingsAt("StructuredData", textInAll)
	for _, f := range []string{"Priority", "Hostname", "AppName", "ProcID", "MsgID", "SourceIP"} {
		eventMapping.AddFieldMappingsAt(f, headerJustIndexed)
	}
	eventMapping.AddFieldMappingsAt("ReferenceTime", timeJustIndexed)
	eventMapping.AddFieldMappingsAt("ReceptionTime", timeJustIndexed)

	indexMapping.DefaultMapping = eventMapping

	return indexMapping, nil
}
