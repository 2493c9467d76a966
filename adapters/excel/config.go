package excel

// ReaderConfig holds configuration for a specimen sheet source
type ReaderConfig struct {
	FilePath string `json:"file_path"`
	// Sheet is the worksheet to read; empty selects the first sheet
	Sheet string `json:"sheet"`
	// AmbientC applies to every specimen that has no ambient_c cell
	AmbientC *float64 `json:"ambient_c,omitempty"`
}

// DefaultReaderConfig returns the defaults for a file path
func DefaultReaderConfig(filePath string) ReaderConfig {
	return ReaderConfig{FilePath: filePath}
}
