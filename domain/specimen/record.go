package specimen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"pmiengine/domain/core"
	"pmiengine/domain/species"
)

// MaxLengthMM is the largest specimen length accepted as a measurement
const MaxLengthMM = 50.0

// validate is shared; validator.Validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// Input is a specimen as submitted, before validation
type Input struct {
	SpecimenID         string   `json:"specimen_id" validate:"omitempty,max=128"`
	Species            string   `json:"species" validate:"required"`
	Stage              string   `json:"stage" validate:"required"`
	LengthMM           *float64 `json:"length_mm,omitempty" validate:"omitempty,gt=0,lte=50"`
	CollectionLocation string   `json:"collection_location,omitempty" validate:"max=512"`
	CollectionMethod   string   `json:"collection_method,omitempty" validate:"max=256"`
	PreservationMethod string   `json:"preservation_method,omitempty" validate:"max=256"`
	Notes              string   `json:"notes,omitempty" validate:"max=4096"`
	AmbientC           *float64 `json:"ambient_c,omitempty" validate:"omitempty,gte=-60,lte=70"`
}

// Record is a validated specimen. It is never modified after New returns.
type Record struct {
	SpecimenID         core.SpecimenID `json:"specimen_id"`
	Species            string          `json:"species"`
	Stage              species.Stage   `json:"stage"`
	LengthMM           *float64        `json:"length_mm"`
	CollectionLocation string          `json:"collection_location"`
	CollectionMethod   string          `json:"collection_method"`
	PreservationMethod string          `json:"preservation_method"`
	Notes              string          `json:"notes"`
}

// HasLength reports whether a length measurement was supplied
func (r Record) HasLength() bool {
	return r.LengthMM != nil
}

// Length returns the measured length, or 0 when absent
func (r Record) Length() float64 {
	if r.LengthMM == nil {
		return 0
	}
	return *r.LengthMM
}

// New validates an input and builds a record. position is the specimen's index in
// its batch; it seeds the derived id when none was supplied.
func New(in Input, position int, table *species.Table) (Record, error) {
	if err := validate.Struct(in); err != nil {
		return Record{}, translateValidation(in, err)
	}

	speciesID := strings.ToLower(strings.TrimSpace(in.Species))
	if _, err := table.Lookup(speciesID); err != nil {
		return Record{}, err
	}

	stage, err := species.ParseStage(in.Stage)
	if err != nil {
		return Record{}, core.NewUnknownStageError(in.Stage)
	}

	id, err := core.ParseSpecimenID(in.SpecimenID)
	if err != nil {
		id = core.DeriveSpecimenID(position, speciesID, string(stage), in.CollectionLocation)
	}

	rec := Record{
		SpecimenID:         id,
		Species:            speciesID,
		Stage:              stage,
		CollectionLocation: in.CollectionLocation,
		CollectionMethod:   in.CollectionMethod,
		PreservationMethod: in.PreservationMethod,
		Notes:              in.Notes,
	}
	if in.LengthMM != nil {
		l := *in.LengthMM
		rec.LengthMM = &l
	}
	return rec, nil
}

func translateValidation(in Input, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.NewInputValidationError("specimen", err.Error())
	}
	fe := verrs[0]
	if fe.Field() == "LengthMM" && in.LengthMM != nil {
		return core.NewLengthRangeError(*in.LengthMM, MaxLengthMM)
	}
	return core.NewInputValidationError(fieldName(fe.Field()), describeTag(fe))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("exceeds %s characters", fe.Param())
	case "gt", "gte", "lte":
		return fmt.Sprintf("must satisfy %s %s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

var jsonFieldNames = map[string]string{
	"SpecimenID":         "specimen_id",
	"Species":            "species",
	"Stage":              "stage",
	"LengthMM":           "length_mm",
	"CollectionLocation": "collection_location",
	"CollectionMethod":   "collection_method",
	"PreservationMethod": "preservation_method",
	"Notes":              "notes",
	"AmbientC":           "ambient_c",
}

func fieldName(goName string) string {
	if n, ok := jsonFieldNames[goName]; ok {
		return n
	}
	return goName
}
