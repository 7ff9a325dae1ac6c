// Package filetypes is the closed catalog of Excel upload categories the
// accounting backend ingests. The catalog ships embedded so the upload form
// and validation agree on the same set without a backend round-trip.
package filetypes

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// FileType describes one upload category.
type FileType struct {
	Code        string `yaml:"code" json:"code"`
	Label       string `yaml:"label" json:"label"`
	Cadence     string `yaml:"cadence" json:"cadence"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

var (
	byCode map[string]FileType
	all    []FileType
)

func init() {
	var catalog struct {
		FileTypes []FileType `yaml:"file_types"`
	}
	if err := yaml.Unmarshal(catalogYAML, &catalog); err != nil {
		panic(fmt.Sprintf("filetypes: embedded catalog is invalid: %v", err))
	}
	if len(catalog.FileTypes) == 0 {
		panic("filetypes: embedded catalog is empty")
	}

	byCode = make(map[string]FileType, len(catalog.FileTypes))
	all = catalog.FileTypes
	for _, ft := range all {
		byCode[ft.Code] = ft
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
}

// All returns every known category sorted by code.
func All() []FileType {
	out := make([]FileType, len(all))
	copy(out, all)
	return out
}

// Lookup returns the category for code.
func Lookup(code string) (FileType, bool) {
	ft, ok := byCode[code]
	return ft, ok
}

// Valid reports whether code names a known category.
func Valid(code string) bool {
	_, ok := byCode[code]
	return ok
}
