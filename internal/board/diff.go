package board

import (
	"path/filepath"
	"strings"
)

// Diff lists every square where a predicted board diverges from the truth
type Diff struct {
	ErrorCount     int      `json:"errors_num"`
	ErrorPositions []int    `json:"err_positions"` // 0-63, ascending
	ErrorPieces    []string `json:"err_pieces"`    // truth char + predicted char
	Truth          string   `json:"truth"`
	Predicted      string   `json:"predicted"`
}

// Compare records every position where predicted differs from truth
func Compare(truth, predicted Sequence) *Diff {
	d := &Diff{
		ErrorPositions: []int{},
		ErrorPieces:    []string{},
		Truth:          truth.String(),
		Predicted:      predicted.String(),
	}

	for i := range truth {
		if truth[i] == predicted[i] {
			continue
		}
		d.ErrorCount++
		d.ErrorPositions = append(d.ErrorPositions, i)
		d.ErrorPieces = append(d.ErrorPieces, string([]byte{truth[i].Char(), predicted[i].Char()}))
	}

	return d
}

// FenFromFilename strips directories and the extension from an image path.
// Both '/' and '\' count as directory separators.
func FenFromFilename(path string) string {
	name := path
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
