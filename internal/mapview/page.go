package mapview

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// pageData carries the document with its script payloads pre-encoded.
// encoding/json escapes <, > and & so the payloads are safe inside <script>.
type pageData struct {
	Document
	BaseLayersJSON     template.JS
	EarthquakesJSON    template.JS
	FaultLinesJSON     template.JS
	FaultLineStyleJSON template.JS
	OverlaysJSON       template.JS
}

// Render writes the interactive map page for doc.
func Render(w io.Writer, doc Document) error {
	data := pageData{Document: doc}

	payloads := []struct {
		dst *template.JS
		v   any
	}{
		{&data.BaseLayersJSON, doc.BaseLayers},
		{&data.EarthquakesJSON, doc.Earthquakes},
		{&data.FaultLinesJSON, doc.FaultLines},
		{&data.FaultLineStyleJSON, doc.FaultLineStyle},
		{&data.OverlaysJSON, doc.Overlays},
	}
	for _, p := range payloads {
		js, err := toJSON(p.v)
		if err != nil {
			return err
		}
		*p.dst = js
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render map page: %w", err)
	}
	return nil
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode map payload: %w", err)
	}
	return template.JS(b), nil
}
