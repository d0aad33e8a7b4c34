package xmind

import (
	"bytes"
	"crypto/rand"
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Archive entry names.
const (
	ContentPath   = "content.xml"
	MetaPath      = "meta.xml"
	StylesPath    = "styles.xml"
	ManifestPath  = "META-INF/manifest.xml"
	ThumbnailPath = "Thumbnails/thumbnail.png"
	MarkersPath   = "attachments/markers.xml"
	PaddingPath   = "attachments/padding.bin"
)

//go:embed styles.xml
var stylesXML []byte

// StylesXML returns the theme and topic styles referenced by ThemeID.
func StylesXML() []byte {
	return slices.Clone(stylesXML)
}

// MetaXML describes the generator.
func MetaXML(creator, version string) []byte {
	return fmt.Appendf(nil, `%s
<meta xmlns="urn:xmind:xmap:xmlns:meta:2.0" version="2.0">
  <Creator>
    <Name>%s</Name>
    <Version>%s</Version>
  </Creator>
</meta>`, xmlHeader, EscapeText(creator), EscapeText(version))
}

// MinimalMetaXML is the metadata block of a skeleton document.
func MinimalMetaXML() []byte {
	return []byte(xmlHeader + `
<meta xmlns="urn:xmind:xmap:xmlns:meta:2.0" version="2.0">
  <Author><Name>Text2Mind</Name></Author>
</meta>`)
}

// MarkersXML is an empty marker sheet.
func MarkersXML() []byte {
	return []byte(xmlHeader + `
<marker-sheet xmlns="urn:xmind:xmap:xmlns:marker:2.0" version="2.0"/>`)
}

// Manifest lists every entry in names together with the directories that
// hold them, sorted by path.
func Manifest(names []string) []byte {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, name := range names {
		if dir := path.Dir(name); dir != "." {
			add(dir + "/")
		}
		add(name)
	}
	slices.Sort(paths)

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("\n<manifest xmlns=\"urn:xmind:xmap:xmlns:manifest:1.0\">\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "  <file-entry full-path=\"%s\" media-type=\"%s\"/>\n", EscapeText(p), mediaType(p))
	}
	b.WriteString("</manifest>")
	return []byte(b.String())
}

func mediaType(name string) string {
	switch {
	case strings.HasSuffix(name, "/"):
		return ""
	case strings.HasSuffix(name, ".xml"):
		return "text/xml"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	}
	return "application/octet-stream"
}

const (
	thumbSize       = 128
	thumbLabelRunes = 15
)

var thumbBlue = color.RGBA{R: 0x46, G: 0x75, B: 0xEB, A: 0xFF}

// Thumbnail renders a small preview: the root title on a blue band.
func Thumbnail(title string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, thumbSize, thumbSize))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 50, 118, 78), image.NewUniform(thumbBlue), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(15, 55+face.Ascent),
	}
	d.DrawString(thumbnailLabel(title))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func thumbnailLabel(title string) string {
	title = SanitizeTitle(title)
	if utf8.RuneCountInString(title) <= thumbLabelRunes {
		return title
	}
	r := []rune(title)
	return string(r[:12]) + Ellipsis
}

// PlaceholderPNG is a 1x1 white image, used when no thumbnail is rendered.
var PlaceholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde, 0x00, 0x00, 0x00,
	0x0c, 0x49, 0x44, 0x41, 0x54, 0x08, 0xd7, 0x63, 0xf8, 0xff, 0xff, 0x3f,
	0x00, 0x05, 0xfe, 0x02, 0xfe, 0xdc, 0xcc, 0x59, 0xe7, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Padding returns size random bytes, generated as they are read.
func Padding(size int64) io.Reader {
	return io.LimitReader(rand.Reader, size)
}
