package main

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/raytracer"
)

func newInfoCmd() *cobra.Command {
	var fit bool

	cmd := &cobra.Command{
		Use:   "info [model.obj|model.gltf|model.glb]",
		Short: "Show model and acceleration structure statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(args, fit)
			if err != nil {
				return err
			}
			lipgloss.Fprintln(cmd.OutOrStdout(), modelReport(model))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fit, "fit", false, "center the model and scale it to a 2 unit box")
	return cmd
}

// modelReport builds the BVH for model and describes both.
func modelReport(model *models.Model) string {
	bvh := raytracer.NewBVH()
	start := time.Now()
	bvh.Build(model.Shapes)
	buildTime := time.Since(start)
	st := bvh.Stats()

	b := model.Bounds
	shapes := lo.Map(model.Shapes, func(s models.Shape, _ int) string {
		return fmt.Sprintf("%s (%d)", s.Name, s.TriangleCount())
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		field("model", model.Name),
		field("shapes", strings.Join(shapes, ", ")),
		field("triangles", model.TriangleCount()),
		field("vertices", model.VertexCount()),
		field("bounds", fmt.Sprintf("(%.3g, %.3g, %.3g) - (%.3g, %.3g, %.3g)", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)),
		field("bvh nodes", st.Nodes),
		field("bvh leaves", st.Leaves),
		field("bvh depth", fmt.Sprintf("%d (avg %.1f)", st.MaxDepth, st.AvgDepth)),
		field("build time", buildTime.Round(time.Microsecond)),
	)
}
