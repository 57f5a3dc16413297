package estimate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"roofquote_backend/internal/payload"
	"roofquote_backend/platform/apperr"
)

// Field alias sets, in priority order. These accumulate as upstream workflow
// revisions rename and re-nest their payload keys; matching is fuzzy (see the
// payload package), so "Job Type", "job-type", and "customData.job_type" all
// hit the first alias.
var (
	jobTypeAliases  = []string{"job_type", "jobtype", "type_of_job", "lead_type", "job"}
	roofTypeAliases = []string{"roof_type", "rooftype", "roof_material", "material", "shingle_type"}
	storiesAliases  = []string{"stories", "story", "number_of_stories", "num_stories", "levels", "floors"}
	squaresAliases  = []string{"squares", "square_count", "roof_squares", "manual_squares"}
	addressAliases  = []string{"full_address", "address", "property_address", "street_address", "address1"}
	streetAliases   = []string{"address1", "street", "street_address"}
	cityAliases     = []string{"city", "town"}
	stateAliases    = []string{"state", "province", "region"}
	postalAliases   = []string{"postal_code", "zip", "zip_code"}
	contactAliases  = []string{"contact_id", "contactid", "crm_contact_id"}
	callbackAliases = []string{"callback_id", "request_id", "correlation_id"}
)

// ResolvedFields holds the raw values pulled from the payload by alias
// search, before any validation. Derived once per request.
type ResolvedFields struct {
	JobType    interface{}
	RoofType   interface{}
	Stories    interface{}
	Squares    interface{}
	Address    string
	ContactID  string
	CallbackID string
}

// ResolveFields resolves every logical field the pipeline cares about.
// The address is either a direct full-address field or synthesized from
// street/city/state/postal parts.
func ResolveFields(r *payload.Resolver) ResolvedFields {
	fields := ResolvedFields{}

	fields.JobType, _ = r.Resolve(jobTypeAliases...)
	fields.RoofType, _ = r.Resolve(roofTypeAliases...)
	fields.Stories, _ = r.Resolve(storiesAliases...)
	fields.Squares, _ = r.Resolve(squaresAliases...)
	fields.Address = resolveAddress(r)
	fields.ContactID = resolveString(r, contactAliases)
	fields.CallbackID = resolveString(r, callbackAliases)

	return fields
}

func resolveString(r *payload.Resolver, aliases []string) string {
	value, ok := r.Resolve(aliases...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(asString(value))
}

// resolveAddress prefers a direct full-address field. Without one it
// concatenates street + city + state + postal, but only when the street and
// at least two of the other parts are present; a street alone geocodes too
// ambiguously to be worth an API call.
func resolveAddress(r *payload.Resolver) string {
	if direct, ok := r.Resolve(addressAliases...); ok {
		if text := strings.TrimSpace(asString(direct)); text != "" {
			return text
		}
	}

	street := resolveString(r, streetAliases)
	if street == "" {
		return ""
	}

	rest := make([]string, 0, 3)
	for _, aliases := range [][]string{cityAliases, stateAliases, postalAliases} {
		if part := resolveString(r, aliases); part != "" {
			rest = append(rest, part)
		}
	}
	if len(rest) < 2 {
		return ""
	}

	return street + ", " + strings.Join(rest, ", ")
}

// Material is a roof covering category used by the material-aware price book.
type Material string

const (
	MaterialAsphalt Material = "asphalt"
	MaterialMetal   Material = "metal"
	MaterialTile    Material = "tile"
	MaterialClay    Material = "clay"
)

// NormalizedInputs are the validated domain values the pipeline runs on.
type NormalizedInputs struct {
	JobType    string
	RoofType   Material
	Stories    int
	Squares    int
	HasSquares bool
	Address    string
}

const defaultJobType = "retail"

// NormalizeInputs validates and coerces the resolved fields. A missing job
// type defaults to retail rather than failing the request; the job-type check
// is advisory, not authoritative.
func NormalizeInputs(fields ResolvedFields) (NormalizedInputs, error) {
	inputs := NormalizedInputs{
		JobType:  NormalizeJobType(fields.JobType),
		RoofType: NormalizeMaterial(fields.RoofType),
		Stories:  NormalizeStories(fields.Stories),
		Address:  fields.Address,
	}

	if fields.Squares != nil {
		squares, err := NormalizeSquares(fields.Squares)
		if err != nil {
			return NormalizedInputs{}, err
		}
		inputs.Squares = squares
		inputs.HasSquares = true
	}

	return inputs, nil
}

// NormalizeJobType lower-cases and trims the raw value, defaulting to retail.
func NormalizeJobType(value interface{}) string {
	text := strings.ToLower(strings.TrimSpace(asString(value)))
	if text == "" {
		return defaultJobType
	}
	return text
}

// IsInsurance reports whether the job type routes to the insurance flow.
// Substring match covers "insurance", "insurance claim", "insur. claim", etc.
func IsInsurance(jobType string) bool {
	return strings.Contains(jobType, "insur")
}

var firstIntRe = regexp.MustCompile(`\d+`)

// NormalizeStories coerces the raw value to a story count clamped to [1,3].
// Values like "2 Stories" yield 2; anything unusable defaults to 1.
func NormalizeStories(value interface{}) int {
	stories := 1

	if number, ok := asFloat(value); ok && !math.IsNaN(number) && !math.IsInf(number, 0) {
		stories = int(number)
	} else if match := firstIntRe.FindString(asString(value)); match != "" {
		if parsed, err := strconv.Atoi(match); err == nil {
			stories = parsed
		}
	}

	if stories < 1 {
		return 1
	}
	if stories > 3 {
		return 3
	}
	return stories
}

// NormalizeSquares coerces the raw value to a whole, positive square count,
// rounding partial squares up. Non-numeric or non-positive input is a
// validation failure: a caller who sent squares meant them.
func NormalizeSquares(value interface{}) (int, error) {
	number, ok := asFloat(value)
	if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, apperr.Validation("squares must be numeric").WithDetails("squares")
	}
	if number <= 0 {
		return 0, apperr.Validation("squares must be greater than zero").WithDetails("squares")
	}
	return int(math.Ceil(number)), nil
}

// NormalizeMaterial maps free-text roof descriptions onto the closed material
// set via substring containment, defaulting to asphalt.
func NormalizeMaterial(value interface{}) Material {
	text := strings.ToLower(strings.TrimSpace(asString(value)))

	switch {
	case strings.Contains(text, "metal"):
		return MaterialMetal
	case strings.Contains(text, "clay"):
		return MaterialClay
	case strings.Contains(text, "tile"):
		return MaterialTile
	default:
		return MaterialAsphalt
	}
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
