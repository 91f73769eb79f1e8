package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/loopsim/internal/run"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ExportCSV writes one row per sample: time, pv, setpoint, output.
func ExportCSV(w io.Writer, r *run.SimulationRun) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"time", "pv", "setpoint", "output"}); err != nil {
		return err
	}
	for _, p := range r.Samples() {
		row := []string{
			formatFloat(p.Time),
			formatFloat(p.PV),
			formatFloat(p.Setpoint),
			formatFloat(p.Output),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON writes r with indentation, in the same shape as runs.json.
func ExportJSON(w io.Writer, r *run.SimulationRun) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
