package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

const (
	// IdentTokenizerName is the registered name of the identifier tokenizer.
	IdentTokenizerName = "class_ident_tokenizer"

	// IdentAnalyzerName is the registered name of the identifier analyzer.
	IdentAnalyzerName = "class_ident_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(IdentTokenizerName, identTokenizerConstructor)
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// searchDocument is the indexed form of one class.
type searchDocument struct {
	Name       string `json:"name"`
	Parent     string `json:"parent"`
	Keys       string `json:"keys"`
	Values     string `json:"values"`
	SourceFile string `json:"file"`
}

// Searcher is an in-memory full-text index over class names, parents,
// property keys and values, and file paths.
type Searcher struct {
	index bleve.Index
}

// NewSearcher builds a Searcher from every entry of ix.
func NewSearcher(ctx context.Context, ix *ClassIndex) (*Searcher, error) {
	m, err := searchMapping()
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeSearchFailed, "failed to create search mapping", err)
	}

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeSearchFailed, "failed to create search index", err)
	}

	batch := idx.NewBatch()
	for _, name := range ix.Names() {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return nil, err
		}
		if err := batch.Index(name, toSearchDocument(ix.Entries[name])); err != nil {
			_ = idx.Close()
			return nil, cerrors.New(cerrors.ErrCodeSearchFailed, fmt.Sprintf("failed to index class %s", name), err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, cerrors.New(cerrors.ErrCodeSearchFailed, "failed to build search index", err)
	}

	return &Searcher{index: idx}, nil
}

// Search returns up to limit classes matching query, best first.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeSearchFailed, "search failed", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, SearchHit{Name: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the index.
func (s *Searcher) Close() error {
	return s.index.Close()
}

func toSearchDocument(e *IndexEntry) searchDocument {
	keys := make([]string, 0, len(e.Class.Properties))
	values := make([]string, 0, len(e.Class.Properties))
	for _, p := range e.Class.Properties {
		keys = append(keys, p.Key)
		values = append(values, p.Value)
	}
	return searchDocument{
		Name:       e.Class.Name,
		Parent:     e.Class.Parent,
		Keys:       strings.Join(keys, " "),
		Values:     strings.Join(values, " "),
		SourceFile: e.Class.SourceFile,
	}
}

func searchMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(IdentAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     IdentTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	m.DefaultAnalyzer = IdentAnalyzerName
	return m, nil
}

func identTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &identTokenizer{}, nil
}

// identTokenizer implements analysis.Tokenizer with TokenizeIdentifiers.
type identTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *identTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	lower := strings.ToLower(text)
	tokens := TokenizeIdentifiers(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	for i, token := range tokens {
		start := max(strings.Index(lower, token), 0)
		end := min(start+len(token), len(text))
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}
