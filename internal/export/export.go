package export

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"daybook/internal/day"
)

type noteDoc struct {
	ID           string    `yaml:"id"`
	Content      string    `yaml:"content"`
	LastModified time.Time `yaml:"last_modified"`
}

type todoDoc struct {
	ID        string     `yaml:"id"`
	Text      string     `yaml:"text"`
	Completed bool       `yaml:"completed"`
	Reminder  *time.Time `yaml:"reminder,omitempty"`
}

type dayDoc struct {
	Date  string    `yaml:"date"`
	Note  *noteDoc  `yaml:"note,omitempty"`
	Todos []todoDoc `yaml:"todos,omitempty"`
}

type document struct {
	Days []dayDoc `yaml:"days"`
}

// WriteYAML writes the non-empty records as a YAML document.
func WriteYAML(w io.Writer, records []day.Record) error {
	doc := document{Days: []dayDoc{}}
	for _, rec := range records {
		if rec.IsEmpty() {
			continue
		}
		d := dayDoc{Date: string(rec.DateKey)}
		if len(rec.Notes) > 0 && rec.Notes[0].Content != "" {
			d.Note = &noteDoc{ID: rec.Notes[0].ID, Content: rec.Notes[0].Content, LastModified: rec.Notes[0].LastModified}
		}
		for _, t := range rec.Todos {
			d.Todos = append(d.Todos, todoDoc{ID: t.ID, Text: t.Text, Completed: t.Completed, Reminder: t.Reminder})
		}
		doc.Days = append(doc.Days, d)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// ReadYAML parses a document written by WriteYAML back into records. Entries
// written by hand without ids get fresh ones.
func ReadYAML(r io.Reader) ([]day.Record, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	records := make([]day.Record, 0, len(doc.Days))
	for _, d := range doc.Days {
		key, err := day.ParseKey(d.Date)
		if err != nil {
			return nil, err
		}
		rec := day.NewRecord(key)
		if d.Note != nil {
			rec.Notes = append(rec.Notes, day.Note{ID: idOrNew(d.Note.ID), Content: d.Note.Content, LastModified: d.Note.LastModified})
		}
		for _, t := range d.Todos {
			if strings.TrimSpace(t.Text) == "" {
				continue
			}
			rec.Todos = append(rec.Todos, day.Todo{ID: idOrNew(t.ID), Text: t.Text, Completed: t.Completed, Reminder: t.Reminder})
		}
		records = append(records, rec)
	}
	return records, nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
