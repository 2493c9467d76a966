package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"pmiengine/domain/core"
	"pmiengine/domain/specimen"
	"pmiengine/internal"
)

// SpecimenReader reads a specimen batch from an .xlsx or .csv sheet
type SpecimenReader struct {
	config   ReaderConfig
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewSpecimenReader creates a reader; the file type follows the extension
func NewSpecimenReader(config ReaderConfig) *SpecimenReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		fileType = "csv"
	}
	return &SpecimenReader{
		config:   config,
		fileType: fileType,
		logger:   internal.DefaultLogger.With("SpecimenReader"),
	}
}

// WithLogger replaces the reader's logger
func (r *SpecimenReader) WithLogger(l *internal.Logger) *SpecimenReader {
	r.logger = l.With("SpecimenReader")
	return r
}

// ReadBatch reads the sheet and converts every data row into a specimen input.
// Row-level validation (species, stage, ranges) is left to the consensus engine
// so that one bad row does not drop the batch.
func (r *SpecimenReader) ReadBatch(ctx context.Context) (specimen.Batch, error) {
	if err := ctx.Err(); err != nil {
		return specimen.Batch{}, err
	}
	data, err := r.ReadData()
	if err != nil {
		return specimen.Batch{}, err
	}
	return r.toBatch(data)
}

// ReadData reads the raw sheet
func (r *SpecimenReader) ReadData() (*SheetData, error) {
	r.logger.Debug("Reading %s file: %s", r.fileType, r.config.FilePath)

	if _, err := os.Stat(r.config.FilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.config.FilePath)
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", strings.ToUpper(r.fileType), float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewInsufficientDataError("sheet must have a header row and at least one specimen row")
	}
	return processRows(rows)
}

func (r *SpecimenReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *SpecimenReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into SheetData, skipping blank rows
func processRows(rows [][]string) (*SheetData, error) {
	headers := make([]string, len(rows[0]))
	present := make(map[string]bool, len(headers))
	for i, h := range rows[0] {
		headers[i] = normaliseHeader(h)
		present[headers[i]] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return nil, core.NewInputValidationError(col, "column missing from sheet header")
		}
	}

	data := &SheetData{Headers: headers}
	for _, row := range rows[1:] {
		raw := make(RawRow, len(headers))
		blank := true
		for j, cell := range row {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			v := strings.TrimSpace(cell)
			if v != "" {
				blank = false
			}
			raw[headers[j]] = v
		}
		if !blank {
			data.Rows = append(data.Rows, raw)
		}
	}
	if len(data.Rows) == 0 {
		return nil, core.NewInsufficientDataError("sheet has no specimen rows")
	}
	return data, nil
}

func normaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ReplaceAll(h, "-", "_")
}

func (r *SpecimenReader) toBatch(data *SheetData) (specimen.Batch, error) {
	batch := specimen.Batch{
		Specimens: make([]specimen.Input, 0, len(data.Rows)),
		AmbientC:  r.config.AmbientC,
	}
	for i, row := range data.Rows {
		in := specimen.Input{
			SpecimenID:         row[ColSpecimenID],
			Species:            row[ColSpecies],
			Stage:              row[ColStage],
			CollectionLocation: row[ColCollectionLocation],
			CollectionMethod:   row[ColCollectionMethod],
			PreservationMethod: row[ColPreservationMethod],
			Notes:              row[ColNotes],
		}
		var err error
		if in.LengthMM, err = optionalFloat(row, ColLengthMM, i); err != nil {
			return specimen.Batch{}, err
		}
		if in.AmbientC, err = optionalFloat(row, ColAmbientC, i); err != nil {
			return specimen.Batch{}, err
		}
		batch.Specimens = append(batch.Specimens, in)
	}
	r.logger.Info("Loaded %d specimens from %s", len(batch.Specimens), filepath.Base(r.config.FilePath))
	return batch, nil
}

func optionalFloat(row RawRow, col string, index int) (*float64, error) {
	s := row[col]
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, core.NewInputValidationError(col, fmt.Sprintf("row %d: %q is not a number", index+2, s))
	}
	return &v, nil
}
