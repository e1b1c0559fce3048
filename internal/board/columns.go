package board

import (
	"encoding/json"
	"strings"
	"time"
)

// columnValue is the wire shape of one cell: a declared type, a plain
// text rendering, and the raw structured value (JSON, may be null).
type columnValue struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Value json.RawMessage `json:"value"`
}

type itemPayload struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	ColumnValues []columnValue `json:"column_values"`
}

// decodeItem maps a wire item onto a Record, decoding each cell by its
// declared type and falling back to the plain-text rendering when the
// structured value is absent or malformed.
func decodeItem(item itemPayload, loc *time.Location) Record {
	record := Record{
		ID:        item.ID,
		Name:      item.Name,
		Permalink: item.URL,
	}
	for _, column := range item.ColumnValues {
		switch column.ID {
		case ColumnStatus:
			record.Status = decodeText(column)
		case ColumnCategory:
			record.Category = decodeText(column)
		case ColumnEmail:
			record.Email = decodeEmail(column)
		case ColumnPhone:
			record.Phone = decodePhone(column)
		case ColumnPeople:
			record.PersonIDs = decodePeople(column)
		case ColumnLastContact:
			record.LastContact = decodeDate(column, loc)
		case ColumnNextFollowUp:
			record.NextFollowUp = decodeDate(column, loc)
		case ColumnNotes:
			record.Notes = decodeLongText(column)
		}
	}
	return record
}

func decodeText(column columnValue) string {
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			Label string `json:"label"`
			Text  string `json:"text"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil {
			if label := strings.TrimSpace(structured.Label); label != "" {
				return label
			}
			if text := strings.TrimSpace(structured.Text); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(column.Text)
}

func decodeEmail(column columnValue) string {
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil && strings.TrimSpace(structured.Email) != "" {
			return strings.TrimSpace(structured.Email)
		}
	}
	return strings.TrimSpace(column.Text)
}

func decodePhone(column columnValue) string {
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			Phone string `json:"phone"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil && strings.TrimSpace(structured.Phone) != "" {
			return strings.TrimSpace(structured.Phone)
		}
	}
	return strings.TrimSpace(column.Text)
}

func decodeLongText(column columnValue) string {
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil && strings.TrimSpace(structured.Text) != "" {
			return strings.TrimSpace(structured.Text)
		}
	}
	return strings.TrimSpace(column.Text)
}

func decodePeople(column columnValue) []string {
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			PersonsAndTeams []struct {
				ID   json.Number `json:"id"`
				Kind string      `json:"kind"`
			} `json:"personsAndTeams"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil && len(structured.PersonsAndTeams) > 0 {
			ids := make([]string, 0, len(structured.PersonsAndTeams))
			for _, entry := range structured.PersonsAndTeams {
				if id := strings.TrimSpace(entry.ID.String()); id != "" {
					ids = append(ids, id)
				}
			}
			return ids
		}
	}
	text := strings.TrimSpace(column.Text)
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func decodeDate(column columnValue, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if len(column.Value) > 0 && string(column.Value) != "null" {
		var structured struct {
			Date string `json:"date"`
			Time string `json:"time"`
		}
		if err := json.Unmarshal(column.Value, &structured); err == nil && strings.TrimSpace(structured.Date) != "" {
			layout, value := "2006-01-02", strings.TrimSpace(structured.Date)
			if clock := strings.TrimSpace(structured.Time); clock != "" {
				layout, value = "2006-01-02 15:04:05", value+" "+clock
			}
			if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
				return &parsed
			}
		}
	}
	if text := strings.TrimSpace(column.Text); text != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", text, loc); err == nil {
			return &parsed
		}
	}
	return nil
}
