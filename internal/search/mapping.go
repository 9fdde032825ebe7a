package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for card documents.
//
// Priorities:
//  1. Stemmed full-text search on names and descriptions
//  2. Attribute rows searchable without stemming ("Range 60 ft")
//  3. Exact keyword matching for tag, level and id filters
//  4. Term vectors on displayed fields for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields ---

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Stored so highlights can quote it.
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = true
	descFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	attrFieldMapping := bleve.NewTextFieldMapping()
	attrFieldMapping.Analyzer = standard.Name
	attrFieldMapping.Store = true
	attrFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("attributes", attrFieldMapping)

	tagTextFieldMapping := bleve.NewTextFieldMapping()
	tagTextFieldMapping.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("tag_text", tagTextFieldMapping)

	// --- Keyword fields ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	levelFieldMapping := bleve.NewTextFieldMapping()
	levelFieldMapping.Analyzer = keyword.Name
	levelFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("level", levelFieldMapping)

	// --- Boolean fields ---

	favoriteFieldMapping := bleve.NewBooleanFieldMapping()
	favoriteFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("favorite", favoriteFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
