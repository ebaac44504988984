package render

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// DefaultLayoutName is the layout the competency template is expected to carry.
const DefaultLayoutName = "Competency_Layout"

// Insertion point names every competency layout must expose.
const (
	HeaderCompType    = "Header_CompType"
	HeaderJobGroup    = "Header_JobGroup"
	HeaderCompetency  = "Header_Competency"
	HeaderDepartment  = "Header_Department"
	MainTitle         = "Main_Title"
	MainDefinition    = "Main_Definition"
	TopicTitle        = "Topic_Title"
	TopicDescription  = "Topic_Description"
	LevelExpert       = "Level_Expert"
	LevelAdvanced     = "Level_Advanced"
	LevelIntermediate = "Level_Intermediate"
	LevelBeginner     = "Level_Beginner"
)

// RequiredPlaceholders is the full insertion point set, in write order.
var RequiredPlaceholders = []string{
	HeaderCompType, HeaderJobGroup, HeaderCompetency, HeaderDepartment,
	MainTitle, MainDefinition,
	TopicTitle, TopicDescription,
	LevelExpert, LevelAdvanced, LevelIntermediate, LevelBeginner,
}

// PlaceholderMap maps insertion point names to placeholder indices of a layout.
type PlaceholderMap map[string]int

// Missing returns the required names absent from m, in RequiredPlaceholders order.
func (m PlaceholderMap) Missing() []string {
	var missing []string
	for _, name := range RequiredPlaceholders {
		if _, ok := m[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Placeholder types that are not copied onto new slides.
var slideExcludedTypes = map[string]bool{"dt": true, "ftr": true, "sldNum": true}

// Placeholder types cloned without a text body.
var nonTextTypes = map[string]bool{"pic": true, "tbl": true, "chart": true, "clipArt": true, "dgm": true, "media": true}

type layoutPlaceholder struct {
	Name    string
	ShapeID string
	Idx     int
	Type    string
	// Attrs are the ph element attributes, copied verbatim onto slides.
	Attrs []etree.Attr
	// Text is false for placeholders without a text body (pictures, charts).
	Text bool
}

type layout struct {
	Name         string
	Part         string
	Placeholders []layoutPlaceholder
	Map          PlaceholderMap
}

// layouts returns the layouts of the first slide master, in master order.
func (p *pptxPackage) layouts() ([]layout, error) {
	pres, err := p.mainPart()
	if err != nil {
		return nil, err
	}
	presDoc, err := p.doc(pres)
	if err != nil {
		return nil, err
	}
	presRels, err := p.rels(pres)
	if err != nil {
		return nil, err
	}

	masterIDs := children(child(presDoc.Root(), nsP, "sldMasterIdLst"), nsP, "sldMasterId")
	if len(masterIDs) == 0 {
		return nil, fmt.Errorf("presentation has no slide master")
	}
	masterRel, ok := relByID(presRels, attrNS(masterIDs[0], nsR, "id"))
	if !ok {
		return nil, fmt.Errorf("slide master relationship not found")
	}
	masterDoc, err := p.doc(masterRel.Part)
	if err != nil {
		return nil, err
	}
	masterRels, err := p.rels(masterRel.Part)
	if err != nil {
		return nil, err
	}

	var out []layout
	for _, el := range children(child(masterDoc.Root(), nsP, "sldLayoutIdLst"), nsP, "sldLayoutId") {
		rel, ok := relByID(masterRels, attrNS(el, nsR, "id"))
		if !ok {
			continue
		}
		l, err := p.readLayout(rel.Part)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("slide master %s has no layouts", masterRel.Part)
	}
	return out, nil
}

func (p *pptxPackage) readLayout(part string) (layout, error) {
	d, err := p.doc(part)
	if err != nil {
		return layout{}, err
	}
	cSld := child(d.Root(), nsP, "cSld")
	l := layout{
		Name: cSld.NotNil().SelectAttrValue("name", ""),
		Part: part,
		Map:  PlaceholderMap{},
	}

	for _, sp := range children(child(cSld, nsP, "spTree"), nsP, "sp") {
		nvSpPr := child(sp, nsP, "nvSpPr")
		ph := child(child(nvSpPr, nsP, "nvPr"), nsP, "ph")
		if ph == nil {
			continue
		}
		cNvPr := child(nvSpPr, nsP, "cNvPr")
		idx, _ := strconv.Atoi(ph.SelectAttrValue("idx", "0"))
		lp := layoutPlaceholder{
			Name:    cNvPr.NotNil().SelectAttrValue("name", ""),
			ShapeID: cNvPr.NotNil().SelectAttrValue("id", ""),
			Idx:     idx,
			Type:    ph.SelectAttrValue("type", "obj"),
			Attrs:   append([]etree.Attr(nil), ph.Attr...),
			Text:    !nonTextTypes[ph.SelectAttrValue("type", "obj")],
		}
		l.Placeholders = append(l.Placeholders, lp)
		if _, seen := l.Map[lp.Name]; !seen && lp.Name != "" {
			l.Map[lp.Name] = lp.Idx
		}
	}
	return l, nil
}

// findLayout returns the layout named name, or the last layout when none matches.
func findLayout(layouts []layout, name string) (layout, bool) {
	for _, l := range layouts {
		if l.Name == name {
			return l, true
		}
	}
	return layouts[len(layouts)-1], false
}

// LayoutNames lists the layouts of a template's first slide master.
func LayoutNames(templatePath string) ([]string, error) {
	pkg, err := openPackage(templatePath)
	if err != nil {
		return nil, err
	}
	ls, err := pkg.layouts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names, nil
}

// Validate checks that the named layout (or the fallback layout) exposes every required
// insertion point. It is a pre-flight for callers that want to fail before generation.
func Validate(templatePath, layoutName string) (bool, []string, error) {
	if layoutName == "" {
		layoutName = DefaultLayoutName
	}
	pkg, err := openPackage(templatePath)
	if err != nil {
		return false, nil, err
	}
	ls, err := pkg.layouts()
	if err != nil {
		return false, nil, err
	}
	l, _ := findLayout(ls, layoutName)
	missing := l.Map.Missing()
	return len(missing) == 0, missing, nil
}
