package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "loteamento [command]",
		Short: "Green-area, street-mask and buildable-area tooling for subdivision projects",
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file to load")

	rootCmd.AddCommand(areasCmd())
	rootCmd.AddCommand(maskCmd())
	rootCmd.AddCommand(buildableCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(serveCmd())

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func areasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "areas [project-path]",
		Short: "Validate a project and print green/cut totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAreas(args[0])
		},
	}
}

func maskCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "mask [project-path]",
		Short: "Buffer the project's streets and print the street mask as GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runMask(args[0], raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the mask before AOI clipping")
	return cmd
}

func buildableCmd() *cobra.Command {
	var percent float64

	cmd := &cobra.Command{
		Use:   "buildable [project-path]",
		Short: "Generate the buildable area (green minus cuts minus streets)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBuildable(args[0], percent)
		},
	}

	cmd.Flags().Float64Var(&percent, "percent", -1, "override percent_permitido")
	return cmd
}

func fetchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "fetch [project-path]",
		Short: "Download the project's restriction bundle and cache it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runFetch(args[0], offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "read from the cache only")
	return cmd
}

func previewCmd() *cobra.Command {
	var (
		materialize bool
		note        string
	)

	cmd := &cobra.Command{
		Use:   "preview [project-path]",
		Short: "Send the buildable area to the backend and summarise the generated layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPreview(args[0], materialize, note)
		},
	}

	cmd.Flags().BoolVar(&materialize, "materialize", false, "store the result as a plan version")
	cmd.Flags().StringVar(&note, "note", "", "note attached to the materialized version")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Start the editor session server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runServe(dir, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (defaults to PORT)")
	return cmd
}
