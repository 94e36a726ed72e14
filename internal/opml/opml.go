// Package opml reads and writes OPML subscription lists.
package opml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const version = "2.0"

// Subscription is one feed outline. Title may be empty.
type Subscription struct {
	Title string
	URL   string
}

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr,omitempty"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title string `xml:"title,omitempty"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr,omitempty"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline,omitempty"`
}

// ErrInvalid is returned for documents that are not OPML.
var ErrInvalid = errors.New("invalid OPML")

// Parse decodes r and returns every outline carrying a feed URL, depth first.
// Folder outlines without a URL are descended into but not returned.
func Parse(r io.Reader) ([]Subscription, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var out []Subscription
	collect(doc.Body.Outlines, &out)
	return out, nil
}

func collect(outlines []outline, out *[]Subscription) {
	for i := range outlines {
		o := &outlines[i]
		if u := strings.TrimSpace(o.XMLURL); u != "" {
			title := strings.TrimSpace(o.Title)
			if title == "" {
				title = strings.TrimSpace(o.Text)
			}
			*out = append(*out, Subscription{Title: title, URL: u})
		}
		collect(o.Outlines, out)
	}
}

// Write encodes subs as an indented OPML document.
func Write(w io.Writer, title string, subs []Subscription) error {
	doc := document{
		Version: version,
		Head:    head{Title: title},
	}
	for _, s := range subs {
		doc.Body.Outlines = append(doc.Body.Outlines, outline{
			Text:   s.Title,
			Title:  s.Title,
			Type:   "rss",
			XMLURL: s.URL,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode opml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
