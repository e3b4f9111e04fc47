package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"
)

var csvHeader = []string{"at", "actor_id", "action", "entity", "entity_id", "meta"}

// WriteCSV renders entries as CSV with a header row.
func WriteCSV(rows []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(raw)
		}
		record := []string{row.At.UTC().Format(time.RFC3339), row.ActorID, row.Action, row.Entity, row.EntityID, meta}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
