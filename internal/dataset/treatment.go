package dataset

import (
	"path/filepath"
	"strings"
)

// Treatment derives an experimental-condition label from a file path.
type Treatment interface {
	Treatment(path string) string
}

// DirectoryTreatment labels a file by its parent directory name. Files sitting
// directly in Root take Root's own name. Mapping renames directory labels.
type DirectoryTreatment struct {
	Root    string
	Mapping map[string]string
}

func (d DirectoryTreatment) Treatment(path string) string {
	parent := filepath.Clean(filepath.Dir(path))
	label := filepath.Base(parent)
	if parent == filepath.Clean(d.Root) {
		label = filepath.Base(filepath.Clean(d.Root))
	}
	if mapped, ok := d.Mapping[label]; ok {
		return mapped
	}
	return label
}

// FilenameTreatment joins the first Tokens underscore tokens of the file name,
// e.g. "2R_OGD_regionprops.csv" -> "2R_OGD". Names whose first token is in
// SingleTokenLabels use that token alone ("ORST_regionprops.csv" -> "ORST").
type FilenameTreatment struct {
	Tokens            int
	SingleTokenLabels []string
}

func (f FilenameTreatment) Treatment(path string) string {
	base := filepath.Base(path)
	tokens := strings.Split(base, "_")

	for _, single := range f.SingleTokenLabels {
		if tokens[0] == single {
			return single
		}
	}

	n := f.Tokens
	if n < 1 {
		n = 1
	}
	if n > len(tokens) {
		n = len(tokens)
	}
	label := strings.Join(tokens[:n], "_")
	if n == len(tokens) {
		label = strings.TrimSuffix(label, filepath.Ext(label))
	}
	return label
}
