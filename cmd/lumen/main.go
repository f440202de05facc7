// lumen - offline triangle ray tracer
// Renders OBJ and glTF scenes (or a built-in Cornell box) with direct
// lighting, shadow rays and progressive anti-aliasing.
//
// Commands:
//
//	render  - trace N accumulation passes and save a PNG
//	view    - interactive progressive preview in the terminal
//	info    - model and acceleration structure statistics
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lumen",
		Short: "Offline triangle ray tracer",
		Long: `lumen traces primary rays through a bounding volume hierarchy, shades
hits with diffuse direct lighting and shadow rays, and averages jittered
passes into the final image. Without a model argument it renders the
built-in Cornell box.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(), newViewCmd(), newInfoCmd())
	return root
}
