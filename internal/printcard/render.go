package printcard

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"barbook/pkg/models"
)

var cardTmpl = template.Must(template.New("cards").Funcs(template.FuncMap{
	"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{num .Layout.PageWidthMM}}mm {{num .Layout.PageHeightMM}}mm; margin: 0; }
body { margin: 0; font-family: Georgia, serif; }
.card { position: relative; overflow: hidden; width: {{num .Layout.PageWidthMM}}mm; height: {{num .Layout.PageHeightMM}}mm; page-break-after: always; }
.field { position: absolute; white-space: pre-wrap; }
.field ul { margin: 0; padding-left: 1.2em; }
</style>
</head>
<body>
{{- range .Cards}}
<section class="card">
{{- range .Fields}}
<div class="field field-{{.Key}}" style="left: {{num .X}}%; top: {{num .Y}}%; width: {{num .Width}}%; font-size: {{num .FontSize}}pt;{{if .Align}} text-align: {{.Align}};{{end}}{{if .Bold}} font-weight: bold;{{end}}">
{{- if .Lines}}<ul>{{range .Lines}}<li>{{.}}</li>{{end}}</ul>{{else}}{{.Text}}{{end -}}
</div>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title  string
	Layout models.PrintLayout
	Cards  []cardData
}

type cardData struct {
	Fields []fieldData
}

type fieldData struct {
	models.LayoutField
	Text  string
	Lines []string
}

// Render writes one page per cocktail. Fields with nothing to show are
// skipped so empty garnish boxes don't print.
func Render(w io.Writer, title string, layout models.PrintLayout, cocktails []models.Cocktail) error {
	data := pageData{Title: title, Layout: layout, Cards: make([]cardData, 0, len(cocktails))}
	for _, c := range cocktails {
		card := cardData{}
		for _, f := range layout.Fields {
			fd := fieldData{LayoutField: f}
			if f.Key == FieldIngredients {
				fd.Lines = IngredientLines(c)
			} else {
				fd.Text = fieldText(c, f.Key)
			}
			if fd.Text == "" && len(fd.Lines) == 0 {
				continue
			}
			card.Fields = append(card.Fields, fd)
		}
		data.Cards = append(data.Cards, card)
	}

	if err := cardTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render cards: %w", err)
	}
	return nil
}

func fieldText(c models.Cocktail, key string) string {
	switch key {
	case FieldName:
		return c.Name
	case FieldGlass:
		return c.Glass
	case FieldMethod:
		return c.Method
	case FieldGarnish:
		if c.Garnish == "" {
			return ""
		}
		return "Garnish: " + c.Garnish
	case FieldNotes:
		return c.Notes
	case FieldDescription:
		return c.Description
	case FieldTags:
		return strings.Join(c.Tags, " · ")
	default:
		return ""
	}
}

// IngredientLines formats recipe lines as "30 ml Gin".
func IngredientLines(c models.Cocktail) []string {
	out := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		var parts []string
		if l.Amount > 0 {
			parts = append(parts, strconv.FormatFloat(l.Amount, 'f', -1, 64))
		}
		if l.Unit != "" {
			parts = append(parts, l.Unit)
		}
		parts = append(parts, l.IngredientName)
		s := strings.Join(parts, " ")
		if l.Notes != "" {
			s += " (" + l.Notes + ")"
		}
		out = append(out, s)
	}
	return out
}
