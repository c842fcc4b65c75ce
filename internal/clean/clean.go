// Package clean implements the pure record cleaning and validation rules of
// the load pipeline. Nothing here touches storage; every function is
// deterministic over its input rows.
package clean

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"onetmart/pkg/domain"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	socRe   = regexp.MustCompile(`^\d{2}-\d{4}\.\d{2}$`)
	isoRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeSpace trims the ends of s and collapses internal runs of
// whitespace to a single space.
func NormalizeSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ValidSOC reports whether code matches the fixed NN-NNNN.NN SOC shape.
func ValidSOC(code string) bool {
	return socRe.MatchString(code)
}

// Occupations cleans raw occupation rows: fields are whitespace-normalized,
// rows without a code or title are dropped, duplicate codes keep the first
// occurrence, and the major group code is derived from the segment before
// the dash. Absent descriptions and underivable group codes get the
// Unavailable sentinel.
func Occupations(rows []domain.Row) []domain.OccupationRecord {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.OccupationRecord, 0, len(rows))
	for _, r := range rows {
		code := NormalizeSpace(r["onetsoc_code"])
		title := NormalizeSpace(r["title"])
		desc := NormalizeSpace(r["description"])
		if code == "" || title == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if desc == "" {
			desc = domain.Unavailable
		}
		out = append(out, domain.OccupationRecord{
			Code:           code,
			Title:          title,
			Description:    desc,
			MajorGroupCode: majorGroupCode(code),
		})
	}
	return out
}

// majorGroupCode derives the 2-digit group prefix from a SOC code, or the
// sentinel when the code lacks the expected dashed shape.
func majorGroupCode(code string) string {
	if !strings.Contains(code, "-") || len(code) < 2 {
		return domain.Unavailable
	}
	prefix := strings.SplitN(code, "-", 2)[0]
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	if prefix == "" {
		return domain.Unavailable
	}
	return prefix
}

// SplitRatings partitions raw rating rows for one domain into cleaned valid
// records and invalid records tagged with the first structural check they
// failed. Checks run in a fixed order: missing code, SOC shape, missing
// element, admitted scale. Rows passing all four are normalized; a row that
// still cannot be cleaned is routed to invalid with ReasonCleaningFailed.
func SplitRatings(rows []domain.Row, d domain.RatingDomain) ([]domain.Rating, []domain.InvalidRating) {
	valid := make([]domain.Rating, 0, len(rows))
	var invalid []domain.InvalidRating
	reject := func(r domain.Row, reason domain.ErrorReason) {
		invalid = append(invalid, domain.InvalidRating{Domain: d, Reason: reason, Fields: r})
	}
	for _, r := range rows {
		code := strings.TrimSpace(r["onetsoc_code"])
		elem := strings.TrimSpace(r["element_id"])
		scale := strings.ToUpper(strings.TrimSpace(r["scale_id"]))
		switch {
		case code == "":
			reject(r, domain.ReasonMissingCode)
		case !ValidSOC(code):
			reject(r, domain.ReasonInvalidSOC)
		case elem == "":
			reject(r, domain.ReasonMissingElement)
		case !domain.ScaleID(scale).Allowed():
			reject(r, domain.ReasonInvalidScale)
		default:
			rec, ok := cleanRating(r, d)
			if !ok {
				reject(r, domain.ReasonCleaningFailed)
				continue
			}
			valid = append(valid, rec)
		}
	}
	return valid, invalid
}

// cleanRating normalizes one rating row that already passed the structural
// checks. The second return is false when normalization leaves the natural
// key unusable after all.
func cleanRating(r domain.Row, d domain.RatingDomain) (domain.Rating, bool) {
	code := NormalizeSpace(r["onetsoc_code"])
	elem := NormalizeSpace(r["element_id"])
	scale := domain.ScaleID(strings.ToUpper(NormalizeSpace(r["scale_id"])))
	if code == "" || elem == "" || !scale.Allowed() {
		return domain.Rating{}, false
	}
	rec := domain.Rating{
		OccupationCode:    code,
		ElementID:         elem,
		ScaleID:           scale,
		DataValue:         parseFloat(r["data_value"]),
		N:                 parseFloat(r["n"]),
		StandardError:     parseFloat(r["standard_error"]),
		LowerCIBound:      parseFloat(r["lower_ci_bound"]),
		UpperCIBound:      parseFloat(r["upper_ci_bound"]),
		RecommendSuppress: parseFlag(r["recommend_suppress"]),
		NotRelevant:       parseFlag(r["not_relevant"]),
		DateUpdated:       parseDate(r["date_updated"]),
		DomainSource:      NormalizeSpace(r["domain_source"]),
		Domain:            d,
	}
	if rec.LowerCIBound != nil && rec.UpperCIBound != nil && *rec.LowerCIBound > *rec.UpperCIBound {
		rec.LowerCIBound, rec.UpperCIBound = rec.UpperCIBound, rec.LowerCIBound
	}
	return rec, true
}

// parseFloat converts best-effort: empty, NaN-like, or unparsable values
// yield nil rather than an error or a default.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseFlag maps boolean-like source values onto the tri-state flags.
func parseFlag(s string) domain.TriState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "T", "TRUE", "1":
		return domain.TriYes
	case "N", "F", "FALSE", "0":
		return domain.TriNo
	default:
		return domain.TriUnknown
	}
}

// dateLayouts are the source formats accepted for date_updated.
var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

// parseDate normalizes to ISO YYYY-MM-DD, or empty when unrecognized.
func parseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if isoRe.MatchString(s) {
		return s
	}
	return ""
}
