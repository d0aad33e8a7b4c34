package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/text2mind/internal/layout"
	"github.com/dgallion1/text2mind/internal/mindtree"
	"github.com/dgallion1/text2mind/internal/xmind"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topic struct {
	Title  string  `xml:"title"`
	Topics []topic `xml:"children>topics>topic"`
}

type content struct {
	Sheet struct {
		Topic topic `xml:"topic"`
	} `xml:"sheet"`
}

func (t topic) titles() []string {
	out := []string{t.Title}
	for _, c := range t.Topics {
		out = append(out, c.titles()...)
	}
	return out
}

func readXMind(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = b
	}
	return files
}

func rootTopic(t *testing.T, files map[string][]byte) topic {
	t.Helper()
	var doc content
	require.NoError(t, xml.Unmarshal(files[xmind.ContentPath], &doc))
	return doc.Sheet.Topic
}

func sampleTree() *mindtree.Node {
	return mindtree.New("Weekly & <Review>",
		mindtree.New("Done", mindtree.New("Shipped parser")),
		mindtree.New("Next week plan", mindtree.New("Item")),
	)
}

func failing(msg string) Builder {
	return BuilderFunc(func(Input, io.Writer) error { return errors.New(msg) })
}

type env struct {
	work string
	out  string
	logs *bytes.Buffer
}

func newEnv(t *testing.T) env {
	t.Helper()
	return env{work: t.TempDir(), out: filepath.Join(t.TempDir(), "map.xmind"), logs: &bytes.Buffer{}}
}

func (e env) options() Options {
	return Options{
		WorkDir:   e.work,
		Padding:   true,
		Thumbnail: true,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
		Log:       slog.New(slog.NewTextHandler(e.logs, nil)),
	}
}

func assertWorkDirClean(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "request work dir should be removed")
}

func TestConvert_Primary(t *testing.T) {
	e := newEnv(t)
	res, err := New(e.options()).Convert(sampleTree(), e.out)
	require.NoError(t, err)

	assert.Equal(t, TierPrimary, res.Tier)
	assert.Equal(t, 5, res.Nodes)
	assert.Equal(t, layout.StrategyMap, res.Strategy)
	assert.Equal(t, e.out, res.Path)

	info, err := os.Stat(e.out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.Size)

	files := readXMind(t, e.out)
	for _, name := range []string{
		xmind.ContentPath, xmind.MetaPath, xmind.StylesPath, xmind.ManifestPath,
		xmind.ThumbnailPath, xmind.MarkersPath, xmind.PaddingPath,
	} {
		assert.Contains(t, files, name)
	}
	assert.Len(t, files[xmind.PaddingPath], int(layout.PaddingSize(5)))
	assert.Equal(t, mindtree.Titles(sampleTree()), rootTopic(t, files).titles())
	assertWorkDirClean(t, e.work)
}

func TestConvert_PrimaryWithoutOptionalResources(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.Padding = false
	opts.Thumbnail = false
	_, err := New(opts).Convert(sampleTree(), e.out)
	require.NoError(t, err)

	files := readXMind(t, e.out)
	assert.NotContains(t, files, xmind.PaddingPath)
	assert.Equal(t, xmind.PlaceholderPNG, files[xmind.ThumbnailPath])
}

func TestConvert_FallsBackToLibrary(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.Primary = failing("encoder exploded")
	res, err := New(opts).Convert(sampleTree(), e.out)
	require.NoError(t, err)

	assert.Equal(t, TierLibrary, res.Tier)
	files := readXMind(t, e.out)
	assert.Contains(t, files, xmind.ManifestPath)
	assert.Equal(t, mindtree.Titles(sampleTree()), rootTopic(t, files).titles())
	assert.Contains(t, e.logs.String(), "tier failed")
	assert.Contains(t, e.logs.String(), "encoder exploded")
	assertWorkDirClean(t, e.work)
}

func TestConvert_FallsBackToMinimal(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.Primary = failing("primary down")
	opts.Library = failing("library down")
	res, err := New(opts).Convert(sampleTree(), e.out)
	require.NoError(t, err)

	assert.Equal(t, TierMinimal, res.Tier)
	assert.Equal(t, 5, res.Nodes)
	files := readXMind(t, e.out)
	root := rootTopic(t, files)
	assert.Equal(t, "Weekly & <Review>", root.Title)
	assert.Empty(t, root.Topics)
	assert.Contains(t, string(files[xmind.ManifestPath]), `full-path="meta.xml"`)
	assert.Equal(t, 2, strings.Count(e.logs.String(), "tier failed"))
}

func TestConvert_PanicMovesToNextTier(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.Primary = BuilderFunc(func(Input, io.Writer) error { panic("nil map") })
	res, err := New(opts).Convert(sampleTree(), e.out)
	require.NoError(t, err)
	assert.Equal(t, TierLibrary, res.Tier)
}

func TestConvert_PartialWritesDiscarded(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.Primary = BuilderFunc(func(_ Input, w io.Writer) error {
		w.Write([]byte("PK\x03\x04 half an archive"))
		return &xmind.StageError{Stage: "archive", Err: errors.New("short write")}
	})
	res, err := New(opts).Convert(sampleTree(), e.out)
	require.NoError(t, err)
	assert.Equal(t, TierLibrary, res.Tier)
	assert.Contains(t, e.logs.String(), "stage=archive")

	files := readXMind(t, e.out)
	assert.Equal(t, "Weekly & <Review>", rootTopic(t, files).Title)
}

func TestConvert_AllTiersFail(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.out, []byte("previous output"), 0o644))

	opts := e.options()
	opts.Primary = failing("one")
	opts.Library = failing("two")
	opts.Minimal = failing("disk gone")
	_, err := New(opts).Convert(sampleTree(), e.out)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "disk gone")

	data, readErr := os.ReadFile(e.out)
	require.NoError(t, readErr)
	assert.Equal(t, "previous output", string(data), "existing output must be left untouched")

	siblings, readErr := os.ReadDir(filepath.Dir(e.out))
	require.NoError(t, readErr)
	assert.Len(t, siblings, 1, "no temp files left beside the output")
	assertWorkDirClean(t, e.work)
}

func TestConvert_UnwritableDestination(t *testing.T) {
	e := newEnv(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := New(e.options()).Convert(sampleTree(), filepath.Join(blocker, "map.xmind"))
	assert.ErrorIs(t, err, ErrConversionFailed)
	assertWorkDirClean(t, e.work)
}

func TestConvert_NilTree(t *testing.T) {
	e := newEnv(t)
	res, err := New(e.options()).Convert(nil, e.out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Nodes)
	assert.Equal(t, mindtree.EmptyTitle, rootTopic(t, readXMind(t, e.out)).Title)
}

func TestTierTransitions(t *testing.T) {
	next, ok := TierPrimary.next()
	assert.True(t, ok)
	assert.Equal(t, TierLibrary, next)
	next, ok = TierLibrary.next()
	assert.True(t, ok)
	assert.Equal(t, TierMinimal, next)
	_, ok = TierMinimal.next()
	assert.False(t, ok)
	assert.Equal(t, "minimal", TierMinimal.String())
}

func TestMinimalTierProperties(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()
	c := New(Options{
		WorkDir: work,
		Log:     slog.New(slog.DiscardHandler),
		Primary: failing("forced"),
		Library: failing("forced"),
	})

	properties := gopter.NewProperties(nil)
	properties.Property("minimal tier keeps the root title", prop.ForAll(
		func(title string, children []string) bool {
			root := mindtree.New(title)
			for _, c := range children {
				root.Add(mindtree.New(c))
			}
			dst := filepath.Join(out, "prop.xmind")
			res, err := c.Convert(root, dst)
			if err != nil || res.Tier != TierMinimal {
				return false
			}
			zr, err := zip.OpenReader(dst)
			if err != nil {
				return false
			}
			defer zr.Close()
			for _, f := range zr.File {
				if f.Name != xmind.ContentPath {
					continue
				}
				rc, err := f.Open()
				if err != nil {
					return false
				}
				var doc content
				err = xml.NewDecoder(rc).Decode(&doc)
				rc.Close()
				return err == nil && doc.Sheet.Topic.Title == xmind.SanitizeTitle(title)
			}
			return false
		},
		gen.AnyString(),
		gen.SliceOf(gen.AlphaString()),
	))
	properties.TestingRun(t)
}
