package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// topicField describes one indexed field of a topic document.
type topicField struct {
	name     string
	analyzer string
	store    bool
	vectors  bool
}

// Prose fields are stemmed. Tags and identifiers are kept whole so slugs
// like "meal-prep" match exactly.
var topicFields = []topicField{
	{name: "title", analyzer: en.AnalyzerName, store: true, vectors: true},
	{name: "content", analyzer: en.AnalyzerName},
	{name: "tags", analyzer: keyword.Name, store: true},
	{name: "category", analyzer: keyword.Name},
	{name: "author", analyzer: keyword.Name},
	{name: "id", analyzer: keyword.Name},
}

func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	for _, f := range topicFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = f.analyzer
		fm.Store = f.store
		fm.IncludeTermVectors = f.vectors
		doc.AddFieldMappingsAt(f.name, fm)
	}

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = en.AnalyzerName
	m.AddDocumentMapping("_default", doc)
	return m
}
