package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rig-merger/internal/logging"
	"rig-merger/internal/metadata"
	"rig-merger/internal/pipeline"
	"rig-merger/internal/preview"
	"rig-merger/internal/report"
	"rig-merger/internal/scene"
	"rig-merger/internal/scenefile"
)

// mergeArgs returns the source, target and metadata paths that follow "--".
func mergeArgs(cmd *cobra.Command, args []string) (source, target, meta string, err error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 || len(args)-dash < 3 {
		fmt.Fprintln(cmd.ErrOrStderr(), errUsage)
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return "", "", "", errUsage
	}
	rest := args[dash:]
	return rest[0], rest[1], rest[2], nil
}

func runMerge(cmd *cobra.Command, args []string, opts options) error {
	srcName, dstName, metaName, err := mergeArgs(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(&opts)
	if err != nil {
		return err
	}
	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	in := report.Inputs{
		Source:   cfg.ScenePath(srcName),
		Target:   cfg.ScenePath(dstName),
		Metadata: cfg.ScenePath(metaName),
	}
	rep := report.New(in)
	rep.OrphanPolicy = cfg.Policy.String()
	rep.RotationUnits = cfg.Units.String()
	rep.DryRun = cfg.DryRun
	log = log.With().Str("run", rep.RunID).Logger()

	res, err := merge(cfg.Policy, in, cfg.OutputPath(), cfg.DryRun, pipeline.Options{RotationUnits: cfg.Units}, log)
	rep.Finish(res, err)
	if err != nil {
		log.Error().Err(err).Msg("merge failed")
	}

	if err == nil && cfg.Preview != "" {
		rep.Preview = cfg.Preview
		img := preview.Render(res.Armature, cfg.PreviewSize, cfg.Supersample)
		if cfg.DryRun {
			log.Info().Str("path", cfg.Preview).Msg("dry run, skipping preview")
		} else if perr := preview.Write(cfg.Preview, img); perr != nil {
			log.Warn().Err(perr).Msg("preview not written")
		} else {
			log.Info().Str("path", cfg.Preview).Msg("wrote preview")
		}
	}

	if cfg.Report != "" && !cfg.DryRun {
		if rerr := report.Write(cfg.Report, rep); rerr != nil {
			log.Warn().Err(rerr).Msg("report not written")
		}
	}
	return err
}

// merge loads both avatars and their metadata into a fresh scene and runs the pipeline.
func merge(policy scene.OrphanPolicy, in report.Inputs, output string, dryRun bool, opts pipeline.Options, log zerolog.Logger) (pipeline.Result, error) {
	meta, err := metadata.Load(in.Metadata)
	if err != nil {
		return pipeline.Result{}, err
	}

	sc := scene.New()
	sc.OrphanPolicy = policy
	source, err := scenefile.ImportFile(sc, in.Source)
	if err != nil {
		return pipeline.Result{}, err
	}
	target, err := scenefile.ImportFile(sc, in.Target)
	if err != nil {
		return pipeline.Result{}, err
	}
	log.Debug().Str("source", source.Name).Str("target", target.Name).Int("objects", len(sc.Objects())).
		Msg("imported avatars")

	exp := scenefile.NewExporter(output, log)
	exp.DryRun = dryRun
	return pipeline.Run(sc, source, target, meta, exp, opts, log)
}
