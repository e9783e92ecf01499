package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lwsgo/internal/app"
	"lwsgo/internal/config"
)

var validateModelPath string

// validateCmd bootstraps a deployment model into an orchestrator without
// starting it (Bootstrap still opens the object and document stores under
// the default data directory on disk), printing the providers it would
// register and the resources each would host. It exists so a deployment
// model can be checked for unknown kinds, duplicate ids and dangling
// depends_on references before serve is ever run against it.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a deployment model file and print what it would register",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateModelPath, "model", "", "path to the deployment model YAML file (required)")
	_ = validateCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	model, err := config.LoadDeploymentModel(validateModelPath)
	if err != nil {
		return err
	}

	orch, _, err := app.Bootstrap(config.DefaultRuntimeConfig(), model)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Resource", "Kind"})
	for _, r := range model.Resources {
		t.AppendRow(table.Row{r.ID, r.Kind})
	}
	t.Render()

	fmt.Printf("\n%d providers registered: ", len(orch.Registry().All()))
	for i, p := range orch.Registry().All() {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(p.Name())
	}
	fmt.Println()
	return nil
}
