package main

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	scene   sceneOptions
	out     string
	preview bool
	cols    int
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [model.obj|model.gltf|model.glb]",
		Short: "Render a scene to a PNG file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, &opts, args)
		},
	}

	opts.scene.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.out, "out", "o", "out.png", "output PNG path")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "print a half-block preview of the result")
	cmd.Flags().IntVar(&opts.cols, "preview-width", 80, "preview width in terminal columns")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions, args []string) error {
	log := newLogger(cmd.ErrOrStderr())

	s, err := newScene(cmd, &opts.scene, args, log)
	if err != nil {
		return err
	}

	start := time.Now()
	for frame := range opts.scene.frames {
		s.pass(frame)
		log.Printf("pass %d/%d", frame+1, opts.scene.frames)
	}
	elapsed := time.Since(start)

	if err := s.fb.SavePNG(opts.out); err != nil {
		return fmt.Errorf("save image: %w", err)
	}

	st := s.tracer.Stats()
	shadowRays := s.shadows.Stats().Rays
	lipgloss.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left,
		field("image", fmt.Sprintf("%s (%dx%d)", opts.out, s.fb.Width, s.fb.Height)),
		field("passes", st.Passes),
		field("primary rays", st.PrimaryRays),
		field("shadow rays", shadowRays),
		field("time", elapsed.Round(time.Millisecond)),
		field("rays/s", fmt.Sprintf("%.0f", s.raysPerSecond())),
	))

	if opts.preview && opts.cols > 0 {
		rows := max(1, opts.cols*s.fb.Height/s.fb.Width/2)
		lipgloss.Fprintln(cmd.OutOrStdout(), s.fb.Resample(opts.cols, rows*2).HalfBlocks())
	}
	return nil
}
