package render

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsP       = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRels = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT      = "http://schemas.openxmlformats.org/package/2006/content-types"

	relTypeOfficeDocument = nsR + "/officeDocument"
	relTypeSlide          = nsR + "/slide"
	relTypeSlideLayout    = nsR + "/slideLayout"

	contentTypesPart = "[Content_Types].xml"
	contentTypeSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

	xmlHeader = `version="1.0" encoding="UTF-8" standalone="yes"`
)

type relationship struct {
	ID     string
	Type   string
	Target string
	// Part is Target resolved against the source part.
	Part string
}

// pptxPackage is an OPC package held in memory. Parts are parsed lazily and only parts
// marked dirty are re-serialized on write.
type pptxPackage struct {
	order []string
	raw   map[string][]byte
	docs  map[string]*etree.Document
	dirty map[string]bool
}

func openPackage(name string) (*pptxPackage, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", name, err)
	}
	defer zr.Close()

	p := &pptxPackage{
		raw:   make(map[string][]byte, len(zr.File)),
		docs:  make(map[string]*etree.Document),
		dirty: make(map[string]bool),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		p.order = append(p.order, f.Name)
		p.raw[f.Name] = b
	}
	return p, nil
}

func (p *pptxPackage) has(part string) bool {
	_, ok := p.raw[part]
	if !ok {
		_, ok = p.docs[part]
	}
	return ok
}

func (p *pptxPackage) doc(part string) (*etree.Document, error) {
	if d, ok := p.docs[part]; ok {
		return d, nil
	}
	b, ok := p.raw[part]
	if !ok {
		return nil, fmt.Errorf("part %s not found in package", part)
	}
	d := etree.NewDocument()
	if err := d.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("failed to parse part %s: %w", part, err)
	}
	p.docs[part] = d
	return d, nil
}

// put stores a new or modified part.
func (p *pptxPackage) put(part string, d *etree.Document) {
	if !p.has(part) {
		p.order = append(p.order, part)
	}
	p.docs[part] = d
	p.dirty[part] = true
}

func (p *pptxPackage) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range p.order {
		b := p.raw[name]
		if p.dirty[name] {
			var err error
			if b, err = p.docs[name].WriteToBytes(); err != nil {
				return fmt.Errorf("failed to serialize part %s: %w", name, err)
			}
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("failed to add part %s: %w", name, err)
		}
		if _, err := fw.Write(b); err != nil {
			return fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	return zw.Close()
}

// relsPart returns the relationships part of a source part ("" is the package itself).
func relsPart(part string) string {
	if part == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

func (p *pptxPackage) rels(part string) ([]relationship, error) {
	name := relsPart(part)
	if !p.has(name) {
		return nil, nil
	}
	d, err := p.doc(name)
	if err != nil {
		return nil, err
	}
	var out []relationship
	for _, el := range d.Root().ChildElements() {
		if el.Tag != "Relationship" || el.SelectAttrValue("TargetMode", "") == "External" {
			continue
		}
		target := el.SelectAttrValue("Target", "")
		out = append(out, relationship{
			ID:     el.SelectAttrValue("Id", ""),
			Type:   el.SelectAttrValue("Type", ""),
			Target: target,
			Part:   resolveTarget(part, target),
		})
	}
	return out, nil
}

func relByID(rels []relationship, id string) (relationship, bool) {
	for _, r := range rels {
		if r.ID == id {
			return r, true
		}
	}
	return relationship{}, false
}

func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

// relativeTarget returns the relationship target that points from source to part.
func relativeTarget(source, part string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(part, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var sb strings.Builder
	for j := i; j < len(from); j++ {
		if from[j] != "." && from[j] != "" {
			sb.WriteString("../")
		}
	}
	sb.WriteString(strings.Join(to[i:], "/"))
	return sb.String()
}

func (p *pptxPackage) mainPart() (string, error) {
	rels, err := p.rels("")
	if err != nil {
		return "", err
	}
	for _, r := range rels {
		if r.Type == relTypeOfficeDocument {
			return r.Part, nil
		}
	}
	if p.has("ppt/presentation.xml") {
		return "ppt/presentation.xml", nil
	}
	return "", fmt.Errorf("package has no presentation part")
}

// addRel appends a relationship to the source part's rels and returns its id.
func (p *pptxPackage) addRel(source, relType, target string) (string, error) {
	name := relsPart(source)
	var d *etree.Document
	if p.has(name) {
		var err error
		if d, err = p.doc(name); err != nil {
			return "", err
		}
	} else {
		d = newXMLDocument()
		d.CreateElement("Relationships").CreateAttr("xmlns", nsPkgRels)
	}

	maxID := 0
	for _, el := range d.Root().ChildElements() {
		id := el.SelectAttrValue("Id", "")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && strings.HasPrefix(id, "rId") && n > maxID {
			maxID = n
		}
	}
	id := fmt.Sprintf("rId%d", maxID+1)
	rel := d.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	p.put(name, d)
	return id, nil
}

func (p *pptxPackage) addContentTypeOverride(part, contentType string) error {
	d, err := p.doc(contentTypesPart)
	if err != nil {
		return err
	}
	partName := "/" + part
	for _, el := range d.Root().ChildElements() {
		if el.Tag == "Override" && el.SelectAttrValue("PartName", "") == partName {
			el.CreateAttr("ContentType", contentType)
			p.put(contentTypesPart, d)
			return nil
		}
	}
	o := d.Root().CreateElement("Override")
	o.CreateAttr("PartName", partName)
	o.CreateAttr("ContentType", contentType)
	p.put(contentTypesPart, d)
	return nil
}

func newXMLDocument() *etree.Document {
	d := etree.NewDocument()
	d.CreateProcInst("xml", xmlHeader)
	return d
}

// is reports whether el is ns:tag, whatever prefix the document uses.
func is(el *etree.Element, ns, tag string) bool {
	return el != nil && el.Tag == tag && el.NamespaceURI() == ns
}

func child(el *etree.Element, ns, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if is(c, ns, tag) {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, ns, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if is(c, ns, tag) {
			out = append(out, c)
		}
	}
	return out
}

func attrNS(el *etree.Element, ns, key string) string {
	for i := range el.Attr {
		if a := &el.Attr[i]; a.Key == key && a.NamespaceURI() == ns {
			return a.Value
		}
	}
	return ""
}

// prefixFor returns the prefix root binds to ns, declaring prefix when none exists.
func prefixFor(root *etree.Element, ns, prefix string) string {
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == ns {
			return a.Key
		}
	}
	root.CreateAttr("xmlns:"+prefix, ns)
	return prefix
}

func qualify(prefix, tag string) string {
	if prefix == "" {
		return tag
	}
	return prefix + ":" + tag
}
