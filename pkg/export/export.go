// Package export renders fleet snapshots for operator tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/groundlink/core/model"
)

// WriteJSON writes the fleet snapshot to w in JSON format.
func WriteJSON(w io.Writer, vehicles []model.Vehicle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vehicles)
}

// WriteCSV writes the fleet snapshot to w as CSV.
func WriteCSV(w io.Writer, vehicles []model.Vehicle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "status", "active", "available", "jobs", "battery", "last_contact"}); err != nil {
		return err
	}
	for _, v := range vehicles {
		rec := []string{
			v.ID,
			string(v.Status),
			strconv.FormatBool(v.IsActive),
			strconv.FormatBool(v.IsAvailable),
			strconv.Itoa(v.JobsAvailable),
			strconv.FormatFloat(v.Battery, 'f', 1, 64),
			v.LastContact.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes the fleet snapshot as a tab-separated listing.
func WriteTable(w io.Writer, vehicles []model.Vehicle) error {
	for _, v := range vehicles {
		state := "inactive"
		if v.IsActive {
			state = "active"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Status, state); err != nil {
			return err
		}
	}
	return nil
}

// Write renders the snapshot in the named format: table, json or csv.
func Write(w io.Writer, format string, vehicles []model.Vehicle) error {
	switch format {
	case "", "table":
		return WriteTable(w, vehicles)
	case "json":
		return WriteJSON(w, vehicles)
	case "csv":
		return WriteCSV(w, vehicles)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
