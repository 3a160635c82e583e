// Package render produces the HTML fragments written into bucket index
// files. Output is deterministic for equal input so that the index
// containment check recognizes repeats.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/paths"
)

// DefaultHeader is written once at the top of every new index file.
const DefaultHeader = "<link rel='stylesheet' href='../../default.css'>" +
	"<script src='../../default.js'></script>" +
	"<script src='../../ads.js'></script>" +
	"<div id='ads' name='ads' class='ads'></div>" +
	"<div id='default' name='default' class='default'></div>"

const entryTemplate = `<a href="../../?reply={{.Reply}}">[ Reply ]</a> ` +
	`<a href="{{.Open}}">[ Open ]</a> ` +
	`<a href="{{.Href}}">{{.Label}}</a><br>`

var entryTmpl = template.Must(template.New("entry").Parse(entryTemplate))

type entryData struct {
	Reply string
	Open  string
	Href  string
	Label string
}

// Renderer renders the header and the three entry flavours.
type Renderer struct {
	header string
	pool   sync.Pool
}

// New creates a Renderer. An empty header selects DefaultHeader. With
// minifyHeader the header is passed through the HTML minifier once.
func New(header string, minifyHeader bool) (*Renderer, error) {
	if header == "" {
		header = DefaultHeader
	}
	if minifyHeader {
		m := minify.New()
		m.AddFunc("text/html", html.Minify)
		out, err := m.String("text/html", header)
		if err != nil {
			return nil, fmt.Errorf("failed to minify header: %w", err)
		}
		header = out
	}
	return &Renderer{
		header: header,
		pool: sync.Pool{
			New: func() interface{} { return new(bytes.Buffer) },
		},
	}, nil
}

// Header returns the index file header.
func (r *Renderer) Header() string { return r.header }

// ContentEntry links an object from inside its own bucket.
func (r *Renderer) ContentEntry(d digest.Digest, ext, label string) (string, error) {
	return r.entry(d, paths.ObjectHref(d, ext), label)
}

// CategoryEntry links an object from any other bucket.
func (r *Renderer) CategoryEntry(d digest.Digest, ext, label string) (string, error) {
	return r.entry(d, paths.CategoryHref(d, ext), label)
}

// LinkEntry links an external URL indexed under d.
func (r *Renderer) LinkEntry(d digest.Digest, url, label string) (string, error) {
	return r.entry(d, url, label)
}

func (r *Renderer) entry(d digest.Digest, href, label string) (string, error) {
	if strings.TrimSpace(label) == "" {
		label = href
	}
	buf := r.pool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.pool.Put(buf)
	}()

	err := entryTmpl.Execute(buf, entryData{
		Reply: string(d),
		Open:  paths.IndexHref(d),
		Href:  href,
		Label: label,
	})
	if err != nil {
		return "", fmt.Errorf("render entry: %w", err)
	}
	return buf.String(), nil
}
