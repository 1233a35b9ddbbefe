package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"
)

// WriteCSV renders timeline rows as a CSV document with a header row.
func WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write([]string{"at", "actor_id", "actor_name", "action", "entity", "entity_id", "issue_code", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		var meta string
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(raw)
		}
		record := []string{
			row.At.Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.ActorName,
			row.Action,
			row.Entity,
			row.EntityID,
			row.IssueCode,
			meta,
		}
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
