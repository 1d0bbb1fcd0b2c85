package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rig-merger/internal/config"
)

// errUsage marks argument errors; usage has already been printed.
var errUsage = errors.New("usage: rigmerge [flags] -- <source> <target> <metadata>")

type options struct {
	configFile string
	flags      config.Flags
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "rigmerge [flags] -- <source> <target> <metadata>",
		Short: "Merge a head avatar's rig into a body avatar's rig",
		Long: `rigmerge places two avatars from their metadata, drops the meshes not listed
as kept and the bones nothing uses any more, snaps the head rig's spine onto
the body's, fuses the two armatures and exports the result.

Paths are resolved against --scene-dir. Output goes to <scene-dir>/Temp unless
--output-dir says otherwise.

Examples:
  rigmerge -- head.yaml body.yaml avatar_metadata.json
  rigmerge --preview merged.webp --report report.json -- head.yaml body.yaml meta.json
  rigmerge inspect body.yaml`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file (YAML or JSON)")
	pf.StringVar(&opts.flags.SceneDir, "scene-dir", "", "directory scene and metadata paths are relative to (default: cwd)")
	pf.StringVar(&opts.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	pf.StringVar(&opts.flags.LogFormat, "log-format", "", "log format: console or json (default: console)")

	f := root.Flags()
	f.StringVar(&opts.flags.OutputDir, "output-dir", "", "output directory (default: <scene-dir>/Temp)")
	f.StringVar(&opts.flags.OutputName, "output-name", "", "output file name (default: merged_avatar.json)")
	f.StringVar(&opts.flags.OrphanPolicy, "orphan-policy", "", "children of pruned bones: reparent or detach (default: reparent)")
	f.StringVar(&opts.flags.RotationUnits, "rotation-units", "", "metadata rotation units: degrees or radians (default: degrees)")
	f.StringVar(&opts.flags.Preview, "preview", "", "write a front-view preview image (.webp or .tga)")
	f.StringVar(&opts.flags.Report, "report", "", "write a JSON run report")
	f.BoolVar(&opts.flags.DryRun, "dry-run", false, "run the merge without writing any files")

	root.AddCommand(newInspectCmd(&opts))
	return root
}

// loadConfig layers the config file, environment and flags.
func loadConfig(opts *options) (config.Config, error) {
	var cfg config.Config
	if opts.configFile != "" {
		var err error
		cfg, err = config.Load(opts.configFile)
		if err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Resolve(opts.flags); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
