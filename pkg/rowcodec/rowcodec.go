// Package rowcodec maps a Job to and from the flat row representation
// used by the spreadsheet backend.
//
// Encoding is total: every job becomes a fixed-width row, and the image
// cells are always the literal empty JSON sequence. A single encoded
// image can exceed the backend's per-cell size limit, so images are
// never persisted to the tabular backend.
//
// Decoding is fail-soft by contract: malformed or missing cells degrade
// to documented defaults and are reported through an advisory
// DecodeError. Decode never panics and always returns a usable Job;
// callers log the error and continue.
package rowcodec

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/antelabs/bodyshop/pkg/model"
)

// Headers is row 1 of the backing sheet, in column order. Data rows
// start at row 2.
var Headers = []string{
	"ID",
	"Fecha",
	"Estado",
	"Matrícula",
	"Marca",
	"Modelo",
	"Tipo Reparación",
	"Piezas",
	"Observaciones",
	"Imagen Ingreso (JSON)",
	"Imágenes Daños (JSON)",
}

// partsSeparator joins identified parts into the Piezas cell.
const partsSeparator = ", "

// emptyImages is written to both image columns unconditionally.
const emptyImages = "[]"

// DecodeError reports which fields of a row degraded to defaults.
// It is advisory: the accompanying Job is still valid and usable.
type DecodeError struct {
	Fields []string
}

func (e *DecodeError) Error() string {
	return "row decode degraded fields: " + strings.Join(e.Fields, ", ")
}

// Encode produces the fixed-width row for a job. Pure and total; the
// image cells are always the encoded empty sequence regardless of
// whether the job carries images.
func Encode(job model.Job) []string {
	return []string{
		job.ID,
		strconv.FormatInt(job.CreatedAt, 10),
		string(job.Status),
		job.CarDetails.Plate,
		job.CarDetails.Make,
		job.CarDetails.Model,
		string(job.RepairType),
		strings.Join(job.IdentifiedParts, partsSeparator),
		job.ManualNotes,
		emptyImages,
		emptyImages,
	}
}

// Decode is the inverse of Encode for text fields. Missing or
// undefined cells substitute documented defaults: empty string for
// text, StatusIntake / RepairBodyWork for the enums, the current time
// for an unparsable date, and an empty sequence for unparsable parts
// or image cells.
//
// The returned error, when non-nil, is a *DecodeError naming the
// degraded fields. The Job is valid either way.
func Decode(row []string) (model.Job, error) {
	var degraded []string

	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	job := model.Job{
		ID: cell(0),
		CarDetails: model.CarDetails{
			Plate: cell(3),
			Make:  cell(4),
			Model: cell(5),
		},
		ManualNotes: cell(8),
	}

	if job.ID == "" {
		degraded = append(degraded, "id")
	}

	if ms, err := strconv.ParseInt(cell(1), 10, 64); err == nil {
		job.CreatedAt = ms
	} else {
		job.CreatedAt = time.Now().UnixMilli()
		degraded = append(degraded, "createdAt")
	}

	if s := cell(2); s != "" && model.ParseJobStatus(s) == model.StatusIntake && model.JobStatus(s) != model.StatusIntake {
		degraded = append(degraded, "status")
	}
	job.Status = model.ParseJobStatus(cell(2))

	if s := cell(6); s != "" && model.ParseRepairType(s) == model.RepairBodyWork && model.RepairType(s) != model.RepairBodyWork {
		degraded = append(degraded, "repairType")
	}
	job.RepairType = model.ParseRepairType(cell(6))

	job.IdentifiedParts = splitParts(cell(7))

	// Image columns are always written as "[]", but tolerate anything:
	// junk degrades to no images, never to a failed row.
	if img, ok := decodeImageCell(cell(9)); ok {
		if len(img) > 0 {
			job.IntakeImage = img[0]
		}
	} else {
		degraded = append(degraded, "intakeImage")
	}
	if imgs, ok := decodeImageCell(cell(10)); ok {
		job.DamageImages = imgs
	} else {
		job.DamageImages = []string{}
		degraded = append(degraded, "damageImages")
	}
	if job.DamageImages == nil {
		job.DamageImages = []string{}
	}

	if len(degraded) > 0 {
		return job, &DecodeError{Fields: degraded}
	}
	return job, nil
}

// splitParts parses a delimiter-joined parts cell, failing soft to an
// empty sequence.
func splitParts(s string) []string {
	if s == "" {
		return []string{}
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// decodeImageCell parses a JSON-encoded image list cell. An empty cell
// decodes as no images; malformed JSON reports !ok.
func decodeImageCell(s string) ([]string, bool) {
	if s == "" || s == emptyImages {
		return []string{}, true
	}
	var imgs []string
	if err := json.Unmarshal([]byte(s), &imgs); err != nil {
		return nil, false
	}
	return imgs, true
}
