package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notebook/pkg/core"
)

// stampLayout is a medium date with a short time, e.g. "Mar 4, 2024 at 3:04 PM".
const stampLayout = "Jan 2, 2006 at 3:04 PM"

type noteView struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Body      string     `json:"body,omitempty" yaml:"body,omitempty"`
	Images    []int      `json:"images" yaml:"images"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty" yaml:"edited_at,omitempty"`
}

func viewOf(n core.Note) noteView {
	sizes := make([]int, len(n.Images))
	for i, img := range n.Images {
		sizes[i] = len(img)
	}
	return noteView{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Images:    sizes,
		CreatedAt: n.CreatedAt,
		EditedAt:  n.EditedAt,
	}
}

// stamp labels a note with its last edit, or its creation when never edited.
func stamp(n core.Note) string {
	return n.LastTouched().Local().Format(stampLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// summaryWidth is the list column width, in characters.
const summaryWidth = 60

// summary is the first line of the title, else of the body.
func summary(n core.Note) string {
	text := n.Title
	if text == "" {
		text = n.Body
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if utf8.RuneCountInString(text) > summaryWidth {
		text = string([]rune(text)[:summaryWidth-3]) + "..."
	}
	if text == "" {
		text = "(empty)"
	}
	return text
}

func writeNotes(w io.Writer, notes []core.Note, format string) error {
	switch format {
	case "json":
		views := make([]noteView, len(notes))
		for i, n := range notes {
			views[i] = viewOf(n)
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(views)
	case "yaml":
		views := make([]noteView, len(notes))
		for i, n := range notes {
			views[i] = viewOf(n)
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(views)
	case "text", "":
		for _, n := range notes {
			images := ""
			if len(n.Images) > 0 {
				images = fmt.Sprintf(" [%d img]", len(n.Images))
			}
			fmt.Fprintf(w, "%s  %-22s  %s%s\n", shortID(n.ID), stamp(n), summary(n), images)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func writeNote(w io.Writer, n core.Note) {
	fmt.Fprintf(w, "ID:      %s\n", n.ID)
	fmt.Fprintf(w, "Edited:  %s\n", stamp(n))
	if n.Title != "" {
		fmt.Fprintf(w, "Title:   %s\n", n.Title)
	}
	for i, img := range n.Images {
		fmt.Fprintf(w, "Image %d: %d bytes\n", i, len(img))
	}
	if n.Body != "" {
		fmt.Fprintf(w, "\n%s\n", n.Body)
	}
}
