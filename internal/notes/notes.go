package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"daybook/internal/day"
)

// Service edits the single note kept per day.
type Service struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert sets the day's note to content, keeping the existing note id when
// there is one. The result always holds exactly one note; empty content is
// allowed.
func (s *Service) Upsert(rec day.Record, content string) day.Record {
	id := ""
	if len(rec.Notes) > 0 {
		id = rec.Notes[0].ID
	}
	if id == "" {
		id = s.newID()
	}
	out := rec.Clone()
	out.Notes = []day.Note{{
		ID:           id,
		Content:      content,
		LastModified: s.now(),
	}}
	return out
}

// Preview returns the plain text of the first heading or paragraph of a
// markdown note, cut to width runes. width <= 0 means no limit.
func Preview(content string, width int) string {
	source := []byte(content)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var first string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindParagraph:
			first = strings.TrimSpace(string(n.Text(source)))
			if first != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return truncate(first, width)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
