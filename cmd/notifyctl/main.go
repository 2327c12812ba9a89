// notifyctl inspects routing decisions and replays events offline.
//
// Usage:
//
//	notifyctl route task.urgent --plan free
//	notifyctl simulate events.json --step 10s
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"notify-pipeline/internal/routing"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var routingFile string
	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "Inspect notification routing and simulate the pipeline",
		Long: `notifyctl loads the routing configuration used by the API and answers
routing questions or replays a batch of events through an in-memory pipeline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&routingFile, "routing", "r", os.Getenv("ROUTING_FILE"), "Routing YAML file (embedded default when empty)")

	load := func() (*routing.Table, error) { return routing.Load(routingFile) }
	root.AddCommand(routeCmd(load))
	root.AddCommand(simulateCmd(load))
	return root
}

type tableLoader func() (*routing.Table, error)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
