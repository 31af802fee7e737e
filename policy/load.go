package policy

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load reads a decision table, choosing the format from the file extension:
// .json, .parquet or .onnx.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".parquet":
		return LoadParquet(path)
	case ".onnx":
		return CompileONNX(path, DefaultONNXConfig)
	default:
		return nil, fmt.Errorf("unknown table format %q", filepath.Ext(path))
	}
}

// Save writes t in the format implied by the extension. ONNX is input only.
func Save(path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(path, t)
	case ".parquet":
		return SaveParquet(path, t)
	default:
		return fmt.Errorf("cannot write table format %q", filepath.Ext(path))
	}
}
