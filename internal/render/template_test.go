package render

import (
	"archive/zip"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/competencymatrix/internal/render/rendertest"
)

func competencyPlaceholders() []rendertest.Placeholder {
	phs := rendertest.Named(RequiredPlaceholders)
	return append(phs, rendertest.Placeholder{Name: "Footer Placeholder", Idx: 40, Type: "ftr"})
}

func without(phs []rendertest.Placeholder, name string) []rendertest.Placeholder {
	out := make([]rendertest.Placeholder, 0, len(phs))
	for _, ph := range phs {
		if ph.Name != name {
			out = append(out, ph)
		}
	}
	return out
}

// readDeck returns every part of a written deck.
func readDeck(t *testing.T, path string) map[string]*etree.Document {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string]*etree.Document)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		d := etree.NewDocument()
		_, err = d.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err, f.Name)
		out[f.Name] = d
	}
	return out
}

// slideTexts maps placeholder names of a slide to their paragraph texts joined by "\n".
func slideTexts(d *etree.Document) map[string]string {
	out := make(map[string]string)
	for _, sp := range d.FindElements("//p:sp") {
		name := sp.FindElement("./p:nvSpPr/p:cNvPr").SelectAttrValue("name", "")
		var lines []string
		for _, p := range sp.FindElements("./p:txBody/a:p") {
			var sb strings.Builder
			for _, t := range p.FindElements(".//a:t") {
				sb.WriteString(t.Text())
			}
			lines = append(lines, sb.String())
		}
		out[name] = strings.Join(lines, "\n")
	}
	return out
}
