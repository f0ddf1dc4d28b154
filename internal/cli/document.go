package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/filestore"
	"github.com/meikuraledutech/flowchart/graph"
	"github.com/meikuraledutech/flowchart/internal/logging"
)

// readChecked reads a document file and rebuilds it as a graph, so every
// document the commands pass on has passed the same checks as an editor
// load.
func readChecked(path string) (flowchart.Document, *graph.Model, error) {
	doc, err := filestore.ReadFile(path)
	if err != nil {
		return flowchart.Document{}, nil, err
	}
	model, err := codec.FromDocument(doc)
	if err != nil {
		return flowchart.Document{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, model, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a document for structural and connection errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := readChecked(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes, %d connections, %d groups)\n",
				args[0], model.NodeCount(), model.ConnectionCount(), len(model.Groups()))
			return nil
		},
	}
}

func newConvertCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Rewrite a document in the format given by OUT's extension",
		Long: `Reads IN, checks it and writes it to OUT. The output format follows
OUT's extension (.json, .yaml or .yml). Use "-" as OUT to write to stdout
in the format chosen with --format.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := readChecked(args[0])
			if err != nil {
				return err
			}
			doc := codec.ToDocument(model)

			if args[1] == "-" {
				f, err := codec.ParseFormat(format)
				if err != nil {
					return err
				}
				data, err := codec.Encode(doc, f)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := filestore.WriteFile(args[1], doc); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("converted", "from", args[0], "to", args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "stdout format: json or yaml")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Print a document as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := readChecked(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), codec.Mermaid(codec.ToDocument(model)))
			return err
		},
	}
}
