// Package render overlays a validated competency record onto a PPTX template: one slide
// per topic, each instantiated from a layout whose named placeholders receive the content.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/textnorm"
	"github.com/beevik/etree"
)

// Options configures a render.
type Options struct {
	// LayoutName defaults to DefaultLayoutName.
	LayoutName string
	// NonStrict skips insertion points missing from the layout or a slide instead of
	// failing. Only for exploratory use.
	NonStrict bool
	// Classification supplies authoritative header values. Empty fields fall back to the
	// record's own comp_type, job_group and department.
	Classification *models.Classification
	Logger         *slog.Logger
}

// Render writes one slide per topic of rec to outputPath and returns the path. Nothing
// is written unless every slide was built: the deck goes to a temporary file in the
// output directory and is renamed into place on success.
func Render(templatePath, outputPath string, rec models.CompetencyRecord, opts Options) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	layoutName := opts.LayoutName
	if layoutName == "" {
		layoutName = DefaultLayoutName
	}
	strict := !opts.NonStrict
	logCtx := logger.With("template", templatePath, "layout", layoutName, "strict", strict)

	pkg, err := openPackage(templatePath)
	if err != nil {
		return "", err
	}
	ls, err := pkg.layouts()
	if err != nil {
		return "", fmt.Errorf("failed to read template layouts: %w", err)
	}
	l, found := findLayout(ls, layoutName)
	if !found {
		logCtx.Warn("Layout not found. Falling back to the last layout.", "fallbackLayout", l.Name)
	}

	if missing := l.Map.Missing(); len(missing) > 0 {
		if strict {
			return "", &TemplateMismatchError{Layout: l.Name, Missing: missing}
		}
		logCtx.Warn("Layout is missing placeholders. They will be skipped.", "missing", missing)
	}
	if len(rec.Topics) == 0 {
		return "", ErrNoTopics
	}

	slides := make([]*etree.Document, 0, len(rec.Topics))
	for i, topic := range rec.Topics {
		d, err := buildSlide(l, i+1, contentFor(rec, topic, opts.Classification), strict, logCtx)
		if err != nil {
			return "", err
		}
		slides = append(slides, d)
	}
	for _, d := range slides {
		if err := pkg.addSlide(d, l.Part); err != nil {
			return "", fmt.Errorf("failed to add slide: %w", err)
		}
	}

	if err := writeAtomically(pkg, outputPath); err != nil {
		return "", err
	}
	logCtx.Info("Deck rendered.", "output", outputPath, "slides", len(slides))
	return outputPath, nil
}

// contentFor maps one topic of rec to insertion point text.
func contentFor(rec models.CompetencyRecord, topic models.CompetencyTopic, c *models.Classification) map[string]string {
	var cls models.Classification
	if c != nil {
		cls = *c
	}
	content := map[string]string{
		HeaderCompType:    firstNonEmpty(cls.GeneralGroup, rec.CompType),
		HeaderJobGroup:    firstNonEmpty(cls.SpecificGroup, rec.JobGroup),
		HeaderCompetency:  rec.CompetencyName,
		HeaderDepartment:  firstNonEmpty(cls.JobLocation, rec.Department),
		MainTitle:         rec.CompetencyName,
		MainDefinition:    rec.Definition,
		TopicTitle:        topic.Title,
		TopicDescription:  topic.Desc,
		LevelExpert:       textnorm.NormalizeLines(topic.Expert),
		LevelAdvanced:     textnorm.NormalizeLines(topic.Advanced),
		LevelIntermediate: textnorm.NormalizeLines(topic.Intermediate),
		LevelBeginner:     textnorm.NormalizeLines(topic.Beginner),
	}
	for k, v := range content {
		content[k] = textnorm.StripBullets(v)
	}
	return content
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// buildSlide instantiates l and writes content into its placeholders.
func buildSlide(l layout, number int, content map[string]string, strict bool, logCtx *slog.Logger) (*etree.Document, error) {
	d, byIdx := newSlide(l)
	for _, name := range RequiredPlaceholders {
		idx, ok := l.Map[name]
		if !ok {
			continue
		}
		sp, ok := byIdx[idx]
		if !ok {
			if strict {
				return nil, &TemplateMismatchError{Layout: l.Name, Slide: number, Name: name}
			}
			logCtx.Debug("Slide has no placeholder. Skipping.", "slide", number, "placeholder", name, "idx", idx)
			continue
		}
		setText(sp, content[name])
	}
	return d, nil
}

// newSlide builds a slide part holding a copy of every layout placeholder except date,
// footer and slide number, keyed by placeholder index.
func newSlide(l layout) (*etree.Document, map[int]*etree.Element) {
	d := newXMLDocument()
	sld := d.CreateElement("p:sld")
	sld.CreateAttr("xmlns:a", nsA)
	sld.CreateAttr("xmlns:r", nsR)
	sld.CreateAttr("xmlns:p", nsP)

	spTree := sld.CreateElement("p:cSld").CreateElement("p:spTree")
	grp := spTree.CreateElement("p:nvGrpSpPr")
	root := grp.CreateElement("p:cNvPr")
	root.CreateAttr("id", "1")
	root.CreateAttr("name", "")
	grp.CreateElement("p:cNvGrpSpPr")
	grp.CreateElement("p:nvPr")
	spTree.CreateElement("p:grpSpPr")

	byIdx := make(map[int]*etree.Element)
	for i, lp := range l.Placeholders {
		if slideExcludedTypes[lp.Type] {
			continue
		}
		sp := spTree.CreateElement("p:sp")
		nv := sp.CreateElement("p:nvSpPr")
		cNvPr := nv.CreateElement("p:cNvPr")
		cNvPr.CreateAttr("id", strconv.Itoa(i+2))
		cNvPr.CreateAttr("name", lp.Name)
		nv.CreateElement("p:cNvSpPr").CreateElement("a:spLocks").CreateAttr("noGrp", "1")
		ph := nv.CreateElement("p:nvPr").CreateElement("p:ph")
		for _, a := range lp.Attrs {
			if a.Space == "" {
				ph.CreateAttr(a.Key, a.Value)
			}
		}
		sp.CreateElement("p:spPr")
		if lp.Text {
			body := sp.CreateElement("p:txBody")
			body.CreateElement("a:bodyPr")
			body.CreateElement("a:lstStyle")
			body.CreateElement("a:p")
		}
		if _, dup := byIdx[lp.Idx]; !dup {
			byIdx[lp.Idx] = sp
		}
	}

	sld.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")
	return d, byIdx
}

// setText replaces the paragraphs of sp with one paragraph per line of text.
func setText(sp *etree.Element, text string) {
	body := sp.SelectElement("p:txBody")
	if body == nil {
		body = sp.CreateElement("p:txBody")
		body.CreateElement("a:bodyPr")
		body.CreateElement("a:lstStyle")
	}
	for _, p := range body.SelectElements("a:p") {
		body.RemoveChild(p)
	}
	for _, line := range strings.Split(text, "\n") {
		p := body.CreateElement("a:p")
		if line == "" {
			continue
		}
		p.CreateElement("a:r").CreateElement("a:t").SetText(line)
	}
}

// addSlide registers a slide part with the presentation: slide and rels parts, content
// type override, presentation relationship and slide id list entry.
func (p *pptxPackage) addSlide(slide *etree.Document, layoutPart string) error {
	pres, err := p.mainPart()
	if err != nil {
		return err
	}

	n := 1
	for p.has(fmt.Sprintf("ppt/slides/slide%d.xml", n)) {
		n++
	}
	part := fmt.Sprintf("ppt/slides/slide%d.xml", n)
	p.put(part, slide)
	if _, err := p.addRel(part, relTypeSlideLayout, relativeTarget(part, layoutPart)); err != nil {
		return err
	}
	if err := p.addContentTypeOverride(part, contentTypeSlide); err != nil {
		return err
	}

	rID, err := p.addRel(pres, relTypeSlide, relativeTarget(pres, part))
	if err != nil {
		return err
	}

	presDoc, err := p.doc(pres)
	if err != nil {
		return err
	}
	root := presDoc.Root()
	pPrefix := root.Space
	rPrefix := prefixFor(root, nsR, "r")

	lst := child(root, nsP, "sldIdLst")
	if lst == nil {
		lst = etree.NewElement(qualify(pPrefix, "sldIdLst"))
		insertAfterLast(root, lst, "sldMasterIdLst", "notesMasterIdLst", "handoutMasterIdLst")
	}
	maxID := 255
	for _, el := range children(lst, nsP, "sldId") {
		if id, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && id > maxID {
			maxID = id
		}
	}
	sldID := lst.CreateElement(qualify(pPrefix, "sldId"))
	sldID.CreateAttr("id", strconv.Itoa(maxID+1))
	sldID.CreateAttr(qualify(rPrefix, "id"), rID)
	p.put(pres, presDoc)
	return nil
}

// insertAfterLast inserts el after the last child of parent whose local name is one of
// tags, or first when there is none.
func insertAfterLast(parent, el *etree.Element, tags ...string) {
	at := 0
	for i, c := range parent.Child {
		ce, ok := c.(*etree.Element)
		if !ok {
			continue
		}
		for _, t := range tags {
			if is(ce, nsP, t) {
				at = i + 1
			}
		}
	}
	parent.InsertChildAt(at, el)
}

func writeAtomically(pkg *pptxPackage, outputPath string) (err error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = pkg.writeTo(tmp); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize deck: %w", err)
	}
	if err = os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("failed to publish deck: %w", err)
	}
	return nil
}
