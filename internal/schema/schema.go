// Package schema declares the field table for the arctos occurrence
// collection. The table is the single source of truth twice over: the index
// lifecycle derives the collection mapping from it, and the transformer
// derives its per-field coercion rules from it. Adding a field here is all
// that is needed to carry it end to end.
package schema

// Native field types understood by the search backend.
const (
	Keyword = "keyword" // exact-match short string
	Text    = "text"    // full-text analyzed string
	Integer = "integer"
	Float   = "float"
)

// Names with special transformer behavior.
const (
	// KeyField is the lookup key column; its value selects the derived type.
	KeyField = "guid_prefix"

	// DerivedField is populated from the type lookup table, not from a CSV
	// column. It is the only schema field with no raw input column.
	DerivedField = "type"

	// CollectorsField holds a comma-separated list in the source and is
	// emitted as a list of trimmed strings.
	CollectorsField = "collectors"
)

// Field pairs a document field name with its native type.
type Field struct {
	Name string
	Type string
}

// Fields is the ordered field table for the collection. Taxonomic fields
// are keyword: faceting on exact ranks is the dominant query shape, and
// text analysis would split binomial names.
var Fields = []Field{
	{KeyField, Keyword},
	{DerivedField, Keyword},
	{"cataloged_item_type", Keyword},
	{"cat_num", Text},
	{"institution_acronym", Keyword},
	{"collection_cde", Keyword},
	{CollectorsField, Keyword},
	{"continent_ocean", Keyword},
	{"country", Keyword},
	{"state_prov", Keyword},
	{"county", Keyword},
	{"dec_lat", Float},
	{"dec_long", Float},
	{"datum", Text},
	{"coordinateuncertaintyinmeters", Float},
	{"scientific_name", Text},
	{"identifiedby", Text},
	{"kingdom", Keyword},
	{"phylum", Keyword},
	{"family", Keyword},
	{"genus", Keyword},
	{"species", Keyword},
	{"subspecies", Keyword},
	{"relatedinformation", Text},
	{"year", Integer},
	{"month", Integer},
	{"day", Integer},
	{"taxon_rank", Keyword},
	{"parts", Keyword},
	{"has_tissue", Keyword},
}

// TypeOf returns the native type for a field name and whether the field is
// part of the schema.
func TypeOf(name string) (string, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// Types returns the field→native-type mapping handed to the backend when
// the collection is created.
func Types() map[string]string {
	m := make(map[string]string, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f.Type
	}
	return m
}
