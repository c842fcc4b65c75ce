// Package domain defines the record types, enumerations, and sentinel values
// shared by the extract, clean, and warehouse layers of the O*NET loader.
package domain

// Unavailable is the storage sentinel written for optional text attributes
// that have no observed value. Inside the pipeline optional values stay
// explicit (empty string, nil pointer, TriUnknown); the sentinel appears
// only at the storage boundary.
const Unavailable = "unavailable"

// Row is a single record extracted from a dump source: raw field values
// keyed by column name. A missing key means the source had no value.
type Row map[string]string

// RatingDomain tags a rating record with the O*NET domain it came from.
type RatingDomain string

// Rating domains feeding the shared fact table.
const (
	DomainSkill     RatingDomain = "SKILL"
	DomainKnowledge RatingDomain = "KNOWLEDGE"
	DomainAbility   RatingDomain = "ABILITY"
)

// RatingDomains lists the domains in canonical promotion order.
func RatingDomains() []RatingDomain {
	return []RatingDomain{DomainSkill, DomainKnowledge, DomainAbility}
}

// ScaleID identifies a measurement scale. Only the importance and level
// scales are admitted into the warehouse.
type ScaleID string

// Admitted scale identifiers.
const (
	ScaleImportance ScaleID = "IM"
	ScaleLevel      ScaleID = "LV"
)

// Allowed reports whether the scale id is in the admitted set.
func (s ScaleID) Allowed() bool {
	return s == ScaleImportance || s == ScaleLevel
}

// TriState is the normalized form of the boolean-like rating flags.
type TriState int

// Tri-state flag values.
const (
	TriUnknown TriState = iota
	TriYes
	TriNo
)

// StorageValue renders the flag in its staging representation.
func (t TriState) StorageValue() string {
	switch t {
	case TriYes:
		return "Y"
	case TriNo:
		return "N"
	default:
		return Unavailable
	}
}

// ErrorReason classifies why a rating record failed a structural check.
type ErrorReason string

// Structural failure reasons, in the order the checks run.
const (
	ReasonMissingCode    ErrorReason = "missing_onetsoc_code"
	ReasonInvalidSOC     ErrorReason = "invalid_soc_format"
	ReasonMissingElement ErrorReason = "missing_element_id"
	ReasonInvalidScale   ErrorReason = "invalid_scale_id"
	ReasonCleaningFailed ErrorReason = "cleaning_failed"
)

// OccupationRecord is a cleaned occupation row keyed by its SOC code.
// Description and MajorGroupCode carry the Unavailable sentinel when the
// source gave nothing usable.
type OccupationRecord struct {
	Code           string
	Title          string
	Description    string
	MajorGroupCode string
}

// Rating is a cleaned skill/knowledge/ability measurement at the
// (occupation, element, scale) grain. Numeric fields are nil when the
// source value was absent or unparsable; nothing is imputed.
type Rating struct {
	OccupationCode    string
	ElementID         string
	ScaleID           ScaleID
	DataValue         *float64
	N                 *float64
	StandardError     *float64
	LowerCIBound      *float64
	UpperCIBound      *float64
	RecommendSuppress TriState
	NotRelevant       TriState
	DateUpdated       string // ISO calendar date, empty when unknown
	DomainSource      string // empty when unknown
	Domain            RatingDomain
}

// InvalidRating retains a rating row that failed a structural check,
// together with the reason and originating domain, for the diagnostics
// staging area. Fields holds the raw row as extracted.
type InvalidRating struct {
	Domain RatingDomain
	Reason ErrorReason
	Fields Row
}

// MajorGroup is one row of the external major-group lookup source.
type MajorGroup struct {
	CodeFull string
	Name     string
}
