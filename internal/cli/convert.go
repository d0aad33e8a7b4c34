package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/text2mind/internal/convert"
	"github.com/dgallion1/text2mind/internal/parser"
	"github.com/spf13/cobra"
)

const xmindExt = ".xmind"

func newConvertCmd(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "convert INPUT [OUTPUT]",
		Short: "Convert a file into a mind map",
		Long: `Convert INPUT into an .xmind document. OUTPUT defaults to INPUT with its
extension replaced; ".xmind" is appended when OUTPUT lacks it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := outputPath(in, "")
			if len(args) == 2 {
				out = outputPath(in, args[1])
			}

			res, err := a.convertFile(in, out, title)
			if err != nil {
				return err
			}
			formatResult(cmd.OutOrStdout(), in, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "override the central topic")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch INPUT... OUTDIR",
		Short: "Convert several files into a directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, dir := args[:len(args)-1], args[len(args)-1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			w := cmd.OutOrStdout()
			failed := 0
			for _, in := range inputs {
				out := filepath.Join(dir, stem(in)+xmindExt)
				res, err := a.convertFile(in, out, "")
				if err != nil {
					failed++
					formatFailure(w, in, err)
					continue
				}
				formatResult(w, in, res)
			}
			formatBatchSummary(w, len(inputs), failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", failed, len(inputs))
			}
			return nil
		},
	}
}

// convertFile parses in with the adapter for its extension and writes the
// mind map to out.
func (a *app) convertFile(in, out, title string) (convert.Result, error) {
	f, err := os.Open(in)
	if err != nil {
		return convert.Result{}, err
	}
	defer f.Close()

	tree, err := parser.Parse(in, f, parser.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext})
	if err != nil {
		return convert.Result{}, err
	}
	if title != "" {
		tree.Title = title
	}
	a.log.Debug("converting", "input", in, "output", out)
	return a.converter().Convert(tree, out)
}

// outputPath resolves the destination for in. An empty out derives it from
// the input name.
func outputPath(in, out string) string {
	if out == "" {
		return strings.TrimSuffix(in, filepath.Ext(in)) + xmindExt
	}
	if !strings.HasSuffix(out, xmindExt) {
		out += xmindExt
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
