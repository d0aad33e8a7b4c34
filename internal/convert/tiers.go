package convert

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/dgallion1/text2mind/internal/layout"
	"github.com/dgallion1/text2mind/internal/mindtree"
	"github.com/dgallion1/text2mind/internal/version"
	"github.com/dgallion1/text2mind/internal/xmind"
	"github.com/google/uuid"
)

// primaryBuilder streams content.xml into the work dir and packages it with
// the full set of resources.
type primaryBuilder struct {
	enc       *xmind.Encoder
	padding   bool
	thumbnail bool
	log       *slog.Logger
}

func (b *primaryBuilder) Build(in Input, w io.Writer) error {
	f, err := os.Create(filepath.Join(in.WorkDir, xmind.ContentPath))
	if err != nil {
		return &xmind.StageError{Stage: "content", Err: err}
	}
	defer f.Close()
	if err := b.enc.Encode(f, in.Sheet); err != nil {
		return &xmind.StageError{Stage: "content", Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return &xmind.StageError{Stage: "content", Err: err}
	}

	thumb := xmind.PlaceholderPNG
	if b.thumbnail {
		data, err := xmind.Thumbnail(in.Sheet.Root.Title)
		if err != nil {
			b.log.Warn("thumbnail failed, using placeholder", "error", err)
		} else {
			thumb = data
		}
	}

	entries := []xmind.Entry{
		{Name: xmind.ContentPath, Body: f},
		{Name: xmind.MetaPath, Data: xmind.MetaXML(version.Creator, version.Version)},
		{Name: xmind.StylesPath, Data: xmind.StylesXML()},
		{Name: xmind.ThumbnailPath, Data: thumb},
		{Name: xmind.MarkersPath, Data: xmind.MarkersXML()},
	}
	if b.padding {
		entries = append(entries, xmind.Entry{
			Name: xmind.PaddingPath,
			Body: xmind.Padding(layout.PaddingSize(in.Sheet.Nodes)),
		})
	}
	if err := xmind.WriteArchive(w, entries); err != nil {
		return &xmind.StageError{Stage: "archive", Err: err}
	}
	return nil
}

// libraryBuilder rebuilds the document through etree, one sub-topic per
// call, without styles, batching or title truncation.
type libraryBuilder struct{}

func (libraryBuilder) Build(in Input, w io.Writer) error {
	root := in.Sheet.Root

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)
	content := doc.CreateElement("xmap-content")
	content.CreateAttr("xmlns", "urn:xmind:xmap:xmlns:content:2.0")
	content.CreateAttr("version", "2.0")

	sheet := content.CreateElement("sheet")
	sheet.CreateAttr("id", uuid.NewString())
	topic := sheet.CreateElement("topic")
	topic.CreateAttr("id", uuid.NewString())
	topic.CreateAttr("structure-class", in.Sheet.Strategy.String())
	topic.CreateElement("title").SetText(xmind.SanitizeTitle(root.Title))
	addTopics(topic, root.Children)
	sheet.CreateElement("title").SetText("Sheet 1")

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return &xmind.StageError{Stage: "content", Err: err}
	}
	err := xmind.WriteArchive(w, []xmind.Entry{
		{Name: xmind.ContentPath, Data: buf.Bytes()},
		{Name: xmind.MetaPath, Data: xmind.MetaXML(version.Creator, version.Version)},
	})
	if err != nil {
		return &xmind.StageError{Stage: "archive", Err: err}
	}
	return nil
}

func addTopics(parent *etree.Element, nodes []*mindtree.Node) {
	for _, n := range nodes {
		t := addSubTopic(parent, xmind.SanitizeTitle(n.Title))
		addTopics(t, n.Children)
	}
}

// addSubTopic appends a titled topic under parent's attached topics.
func addSubTopic(parent *etree.Element, title string) *etree.Element {
	var topics *etree.Element
	if children := parent.SelectElement("children"); children != nil {
		topics = children.SelectElement("topics")
	} else {
		topics = parent.CreateElement("children").CreateElement("topics")
		topics.CreateAttr("type", "attached")
	}
	t := topics.CreateElement("topic")
	t.CreateAttr("id", uuid.NewString())
	t.CreateElement("title").SetText(title)
	return t
}

const skeletonContent = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<xmap-content xmlns="urn:xmind:xmap:xmlns:content:2.0" version="2.0">
  <sheet id="sheet1">
    <topic id="root" structure-class="%s">
      <title>%s</title>
    </topic>
    <title>Sheet 1</title>
  </sheet>
</xmap-content>`

// minimalBuilder writes a skeleton holding only the root title.
type minimalBuilder struct{}

func (minimalBuilder) Build(in Input, w io.Writer) error {
	content := fmt.Sprintf(skeletonContent,
		layout.StrategyMap, xmind.EscapeText(xmind.SanitizeTitle(in.Sheet.Root.Title)))
	return xmind.WriteArchive(w, []xmind.Entry{
		{Name: xmind.ContentPath, Data: []byte(content)},
		{Name: xmind.MetaPath, Data: xmind.MinimalMetaXML()},
	})
}
