package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/sim"
)

type ExportData struct {
	RunMetadata
	Times  []float64 `json:"times"`
	States [][]Float `json:"states"`
}

// ExportJSON writes a rollout and its metadata as a single JSON document.
func ExportJSON(w io.Writer, name string, cfg *config.Config, result *sim.Result) error {
	data := ExportData{
		RunMetadata: newMetadata("", name, cfg, result),
		Times:       result.Times,
		States:      make([][]Float, len(result.States)),
	}
	for i, s := range result.States {
		row := make([]Float, len(s))
		for j, v := range s {
			row[j] = Float(v)
		}
		data.States[i] = row
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
