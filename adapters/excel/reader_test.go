package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pmiengine/domain/core"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "specimens.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specimens.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadBatchFromWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Specimen ID", "Species", "Stage", "Length MM", "Collection Location", "Ambient C"},
		{"S1", "lucilia_sericata", "3rd_instar", 12.5, "kitchen", 20},
		{"S2", "chrysomya_rufifacies", "pupa", "", "kitchen", ""},
		{"", "", "", "", "", ""},
		{"S3", "calliphora_vicina", "2nd_instar"},
	})

	ambient := 28.0
	cfg := DefaultReaderConfig(path)
	cfg.AmbientC = &ambient
	batch, err := NewSpecimenReader(cfg).ReadBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, batch.Specimens, 3)
	assert.Equal(t, &ambient, batch.AmbientC)

	s1 := batch.Specimens[0]
	assert.Equal(t, "S1", s1.SpecimenID)
	assert.Equal(t, "lucilia_sericata", s1.Species)
	assert.Equal(t, "3rd_instar", s1.Stage)
	require.NotNil(t, s1.LengthMM)
	assert.InDelta(t, 12.5, *s1.LengthMM, 1e-9)
	require.NotNil(t, s1.AmbientC)
	assert.InDelta(t, 20.0, *s1.AmbientC, 1e-9)
	assert.Equal(t, "kitchen", s1.CollectionLocation)

	assert.Nil(t, batch.Specimens[1].LengthMM)
	assert.Nil(t, batch.Specimens[1].AmbientC)
	assert.Equal(t, "2nd_instar", batch.Specimens[2].Stage)
}

func TestReadBatchFromCSV(t *testing.T) {
	path := writeCSV(t, "specimen_id,species,stage,length_mm\nA,lucilia_sericata,pupa,\nB,lucilia_sericata,3rd_instar,14\n")

	batch, err := NewSpecimenReader(DefaultReaderConfig(path)).ReadBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Specimens, 2)
	assert.Nil(t, batch.Specimens[0].LengthMM)
	require.NotNil(t, batch.Specimens[1].LengthMM)
	assert.InDelta(t, 14.0, *batch.Specimens[1].LengthMM, 1e-9)
}

func TestReadBatchErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(error) bool
	}{
		{"missing stage column", "species,length_mm\nlucilia_sericata,10\n", core.IsInputValidationError},
		{"bad number", "species,stage,length_mm\nlucilia_sericata,pupa,long\n", core.IsInputValidationError},
		{"header only", "species,stage\n", core.IsInsufficientDataError},
		{"blank rows only", "species,stage\n,\n,\n", core.IsInsufficientDataError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			_, err := NewSpecimenReader(DefaultReaderConfig(path)).ReadBatch(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestReadBatchMissingFile(t *testing.T) {
	_, err := NewSpecimenReader(DefaultReaderConfig(filepath.Join(t.TempDir(), "none.xlsx"))).ReadBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSpecimenReader(DefaultReaderConfig("unused.csv")).ReadBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
