package publish

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
)

// Layout selects how the gallery page arranges thumbnails.
type Layout string

const (
	LayoutGrid      Layout = "grid"
	LayoutJustified Layout = "justified"
	LayoutMasonry   Layout = "masonry"
)

// Layouts lists the supported layouts in display order.
var Layouts = []Layout{LayoutJustified, LayoutMasonry, LayoutGrid}

// ParseLayout accepts a layout name; empty means justified.
func ParseLayout(name string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(name))); l {
	case "":
		return LayoutJustified, nil
	case LayoutGrid, LayoutJustified, LayoutMasonry:
		return l, nil
	}
	return "", fmt.Errorf("unknown gallery layout %q", name)
}

// NextLayout cycles through Layouts.
func NextLayout(current Layout) Layout {
	for i, l := range Layouts {
		if l == current {
			return Layouts[(i+1)%len(Layouts)]
		}
	}
	return Layouts[0]
}

// Page is the data rendered into index.html.
type Page struct {
	Title       string
	Description string
	Layout      Layout
	Images      []catalog.RemoteImage
	Generated   time.Time
}

type pageView struct {
	Title       string
	Description template.HTML
	Layout      string
	Items       []itemView
	Count       int
	Generated   string
}

type itemView struct {
	Full    string
	Thumb   string
	Caption string
}

var sanitizer = bluemonday.UGCPolicy()

// Render produces the gallery's index.html.
func Render(p Page) ([]byte, error) {
	layout, err := ParseLayout(string(p.Layout))
	if err != nil {
		return nil, err
	}
	view := pageView{
		Title:       strings.TrimSpace(p.Title),
		Description: template.HTML(sanitizer.Sanitize(p.Description)),
		Layout:      string(layout),
		Count:       len(p.Images),
		Generated:   p.Generated.Format("2 January 2006"),
	}
	if view.Title == "" {
		view.Title = "Family Photos"
	}
	for _, img := range p.Images {
		thumb := img.ThumbnailPath
		if thumb == "" {
			thumb = img.Path
		}
		view.Items = append(view.Items, itemView{
			Full:    img.Path,
			Thumb:   thumb,
			Caption: strings.TrimSuffix(img.Name, path.Ext(img.Name)),
		})
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render gallery: %w", err)
	}
	return buf.Bytes(), nil
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: #faf8f5; color: #2b2b2b; }
header { padding: 2rem 1.5rem 1rem; }
header h1 { margin: 0 0 .5rem; font-weight: 600; }
footer { padding: 1.5rem; font-size: .85rem; color: #777; }
.gallery a { display: block; overflow: hidden; border-radius: 4px; background: #eee; }
.gallery img { display: block; width: 100%; height: 100%; object-fit: cover; }
.gallery figcaption { font-size: .8rem; padding: .25rem .4rem; }
figure { margin: 0; }
.layout-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 6px; padding: 0 1.5rem; }
.layout-grid a { aspect-ratio: 1 / 1; }
.layout-justified { display: flex; flex-wrap: wrap; gap: 6px; padding: 0 1.5rem; }
.layout-justified figure { flex: 1 1 auto; height: 120px; }
.layout-justified figure a { height: 100%; }
.layout-justified figure img { width: auto; min-width: 100%; }
.layout-justified figcaption { display: none; }
.layout-masonry { column-width: 220px; column-gap: 6px; padding: 0 1.5rem; }
.layout-masonry figure { break-inside: avoid; margin-bottom: 6px; }
.layout-masonry img { height: auto; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{if .Description}}<div class="description">{{.Description}}</div>{{end}}
</header>
<main class="gallery layout-{{.Layout}}">
{{range .Items}}<figure><a href="{{.Full}}"><img src="{{.Thumb}}" alt="{{.Caption}}" loading="lazy"></a><figcaption>{{.Caption}}</figcaption></figure>
{{end}}</main>
<footer>{{.Count}} photos{{if .Generated}} &middot; updated {{.Generated}}{{end}}</footer>
</body>
</html>
`))
