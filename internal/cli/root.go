// Package cli implements the text2mind command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/text2mind/internal/config"
	"github.com/dgallion1/text2mind/internal/convert"
	"github.com/dgallion1/text2mind/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *slog.Logger
}

// NewRootCmd builds the text2mind command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "text2mind",
		Short: "Convert indented text into XMind mind maps",
		Long: `text2mind turns indented outlines, Markdown, HTML, DOCX, PDF and JSON/YAML
trees into .xmind documents.

Every line's indentation decides its parent. Large maps pick a wider layout,
and when the full document cannot be written a simpler one is produced instead.

Configuration is read from TEXT2MIND_* environment variables and an optional
--config file; flags take precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.Version = version.Version
	root.SetVersionTemplate(fmt.Sprintf("text2mind %s\n", version.String()))

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.Bool("padding", true, "include the padding attachment in archives")
	flags.Bool("thumbnail", true, "render a thumbnail preview")
	a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	a.v.BindPFlag(config.KeyPadding, flags.Lookup("padding"))
	a.v.BindPFlag(config.KeyThumbnail, flags.Lookup("thumbnail"))

	root.AddCommand(
		newConvertCmd(a),
		newBatchCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	a.cfg = config.FromViper(a.v)
	level, err := config.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) converter() *convert.Converter {
	return convert.New(convert.Options{
		WorkDir:   a.cfg.WorkDir,
		Padding:   a.cfg.Padding,
		Thumbnail: a.cfg.Thumbnail,
		Log:       a.log,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "text2mind %s\n", version.String())
		},
	}
}
