package content

import "github.com/tensorline/tensorline-backend/internal/db"

// Known tables. Generic helpers take db.Table values, never raw strings.
const (
	TableCaseStudies db.Table = "case_studies"
	TableAlgorithms  db.Table = "algorithms"
	TableIndustries  db.Table = "industries"
	TablePersonas    db.Table = "personas"

	TableCaseStudyIndustries db.Table = "case_study_industries"
	TableCaseStudyAlgorithms db.Table = "case_study_algorithms"
	TableCaseStudyPersonas   db.Table = "case_study_personas"
	TableAlgorithmIndustries db.Table = "algorithm_industries"

	TableAuditLog db.Table = "audit_log"
)

// RelationshipConfig declares one side of a junction table: how to read or
// write edges when the given source type is the query root.
type RelationshipConfig struct {
	// Kind names the collection on the source item; it equals the target
	// type so a case study exposes "algorithms" and an algorithm exposes
	// "case_studies" over the same junction.
	Kind        string
	Junction    db.Table
	SourceField string
	TargetField string
	TargetTable db.Table
	TargetType  Type

	// TracksDeletes marks junctions that carry a deleted_at column. Legacy
	// junctions without it are skipped by the lifecycle cascade and read
	// unfiltered.
	TracksDeletes bool
}

// junctionDef declares a junction table once; relationship configs for both
// sides are derived from it.
type junctionDef struct {
	table         db.Table
	left          Type
	leftField     string
	right         Type
	rightField    string
	tracksDeletes bool
}

var junctions = []junctionDef{
	{TableCaseStudyIndustries, TypeCaseStudy, "case_study_id", TypeIndustry, "industry_id", true},
	{TableCaseStudyAlgorithms, TypeCaseStudy, "case_study_id", TypeAlgorithm, "algorithm_id", true},
	{TableCaseStudyPersonas, TypeCaseStudy, "case_study_id", TypePersona, "persona_id", true},
	// algorithm_industries predates the soft-delete cascade and has no
	// deleted_at column.
	{TableAlgorithmIndustries, TypeAlgorithm, "algorithm_id", TypeIndustry, "industry_id", false},
}

var allTypes = []Type{TypeCaseStudy, TypeAlgorithm, TypeIndustry, TypePersona}

// TableFor returns the content table backing a type.
func TableFor(t Type) db.Table {
	return db.Table(t)
}

// ParseType validates a type name from an external caller (URL segment,
// audit row). Returns false for unknown names.
func ParseType(name string) (Type, bool) {
	for _, t := range allTypes {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Types lists every registered content type.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// RelationshipsFor returns the relationship configs for every junction the
// given type participates in, viewed from that type's side.
func RelationshipsFor(t Type) []RelationshipConfig {
	var configs []RelationshipConfig
	for _, j := range junctions {
		if j.left == t {
			configs = append(configs, RelationshipConfig{
				Kind:          string(j.right),
				Junction:      j.table,
				SourceField:   j.leftField,
				TargetField:   j.rightField,
				TargetTable:   TableFor(j.right),
				TargetType:    j.right,
				TracksDeletes: j.tracksDeletes,
			})
		}
		if j.right == t {
			configs = append(configs, RelationshipConfig{
				Kind:          string(j.left),
				Junction:      j.table,
				SourceField:   j.rightField,
				TargetField:   j.leftField,
				TargetTable:   TableFor(j.left),
				TargetType:    j.left,
				TracksDeletes: j.tracksDeletes,
			})
		}
	}
	return configs
}

// RelationshipFor resolves one kind for a type, for callers that sync a
// single collection.
func RelationshipFor(t Type, kind string) (RelationshipConfig, bool) {
	for _, cfg := range RelationshipsFor(t) {
		if cfg.Kind == kind {
			return cfg, true
		}
	}
	return RelationshipConfig{}, false
}
