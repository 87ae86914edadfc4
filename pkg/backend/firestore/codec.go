package firestore

import (
	"sort"
	"strconv"
	"strings"

	"github.com/antelabs/bodyshop/pkg/model"
)

// Firestore REST wire types. Only the value kinds the job document uses
// are modeled; integers travel as decimal strings per the API.

type listResponse struct {
	Documents     []document `json:"documents"`
	NextPageToken string     `json:"nextPageToken"`
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields,omitempty"`
}

type documentMask struct {
	FieldPaths []string `json:"fieldPaths"`
}

type commitWrite struct {
	Update     *document     `json:"update,omitempty"`
	UpdateMask *documentMask `json:"updateMask,omitempty"`
}

type commitRequest struct {
	Writes []commitWrite `json:"writes"`
}

type value struct {
	StringValue  *string     `json:"stringValue,omitempty"`
	IntegerValue *string     `json:"integerValue,omitempty"`
	ArrayValue   *arrayValue `json:"arrayValue,omitempty"`
	MapValue     *mapValue   `json:"mapValue,omitempty"`
}

type arrayValue struct {
	Values []value `json:"values,omitempty"`
}

type mapValue struct {
	Fields map[string]value `json:"fields,omitempty"`
}

func strValue(s string) value {
	return value{StringValue: &s}
}

func intValue(n int64) value {
	s := strconv.FormatInt(n, 10)
	return value{IntegerValue: &s}
}

func strArrayValue(items []string) value {
	vals := make([]value, 0, len(items))
	for _, it := range items {
		vals = append(vals, strValue(it))
	}
	return value{ArrayValue: &arrayValue{Values: vals}}
}

// fieldsFromJob encodes a job as a Firestore field map. Optional fields
// with no value are omitted entirely: the backend rejects explicit
// no-value markers, so absence is the only safe encoding.
func fieldsFromJob(job model.Job) map[string]value {
	fields := map[string]value{
		"id":        strValue(job.ID),
		"createdAt": intValue(job.CreatedAt),
		"status":    strValue(string(job.Status)),
		"carDetails": {MapValue: &mapValue{Fields: carDetailFields(job.CarDetails)}},
		"identifiedParts": strArrayValue(job.IdentifiedParts),
		"manualNotes":     strValue(job.ManualNotes),
		"repairType":      strValue(string(job.RepairType)),
		"damageImages":    strArrayValue(job.DamageImages),
	}
	if job.IntakeImage != "" {
		fields["intakeImage"] = strValue(job.IntakeImage)
	}
	return fields
}

func carDetailFields(c model.CarDetails) map[string]value {
	fields := map[string]value{
		"plate": strValue(c.Plate),
		"make":  strValue(c.Make),
		"model": strValue(c.Model),
	}
	if c.Color != "" {
		fields["color"] = strValue(c.Color)
	}
	if c.Year != "" {
		fields["year"] = strValue(c.Year)
	}
	return fields
}

// fieldPaths lists the top-level field names present in the encoded
// document, sorted for a stable request shape.
func fieldPaths(fields map[string]value) []string {
	paths := make([]string, 0, len(fields))
	for k := range fields {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// jobFromDocument decodes one listed document. When the id field is
// missing the document id from the resource name stands in, so two
// degraded documents never collapse onto the same merge key.
func jobFromDocument(doc document) model.Job {
	job := jobFromFields(doc.Fields)
	if job.ID == "" {
		job.ID = resourceNameID(doc.Name)
	}
	return job
}

// resourceNameID extracts the document id, the last path segment of a
// full resource name.
func resourceNameID(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// jobFromFields decodes a Firestore field map into a job, substituting
// defaults for anything missing or mistyped. Decode is fail-soft: a
// malformed document yields a defaulted job, never an error.
func jobFromFields(fields map[string]value) model.Job {
	job := model.Job{
		ID:              fieldString(fields, "id"),
		CreatedAt:       fieldInt(fields, "createdAt"),
		Status:          model.ParseJobStatus(fieldString(fields, "status")),
		IntakeImage:     fieldString(fields, "intakeImage"),
		DamageImages:    fieldStrings(fields, "damageImages"),
		IdentifiedParts: fieldStrings(fields, "identifiedParts"),
		ManualNotes:     fieldString(fields, "manualNotes"),
		RepairType:      model.ParseRepairType(fieldString(fields, "repairType")),
	}

	if mv := fields["carDetails"].MapValue; mv != nil {
		job.CarDetails = model.CarDetails{
			Plate: fieldString(mv.Fields, "plate"),
			Make:  fieldString(mv.Fields, "make"),
			Model: fieldString(mv.Fields, "model"),
			Color: fieldString(mv.Fields, "color"),
			Year:  fieldString(mv.Fields, "year"),
		}
	}
	return job
}

func fieldString(fields map[string]value, key string) string {
	if v, ok := fields[key]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

func fieldInt(fields map[string]value, key string) int64 {
	v, ok := fields[key]
	if !ok || v.IntegerValue == nil {
		return 0
	}
	n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func fieldStrings(fields map[string]value, key string) []string {
	out := []string{}
	v, ok := fields[key]
	if !ok || v.ArrayValue == nil {
		return out
	}
	for _, item := range v.ArrayValue.Values {
		if item.StringValue != nil {
			out = append(out, *item.StringValue)
		}
	}
	return out
}
