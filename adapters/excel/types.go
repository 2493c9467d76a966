package excel

// RawRow is one sheet row keyed by normalised header
type RawRow map[string]string

// SheetData is the header row plus data rows of a sheet
type SheetData struct {
	Headers []string
	Rows    []RawRow
}

// Column headers understood by the reader
const (
	ColSpecimenID         = "specimen_id"
	ColSpecies            = "species"
	ColStage              = "stage"
	ColLengthMM           = "length_mm"
	ColCollectionLocation = "collection_location"
	ColCollectionMethod   = "collection_method"
	ColPreservationMethod = "preservation_method"
	ColNotes              = "notes"
	ColAmbientC           = "ambient_c"
)

var requiredColumns = []string{ColSpecies, ColStage}
