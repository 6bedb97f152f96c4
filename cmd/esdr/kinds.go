package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pipelined/esdr/block"
)

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "Show the list of available blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range block.Kinds() {
				fmt.Fprintf(w, "%s\n", k)
				for _, p := range k.Ports() {
					switch {
					case p.Kind == block.Scalar && p.Updatable:
						fmt.Fprintf(w, "\t%s\t%v scalar\t%v\tupdatable\n", p.Name, p.Direction, p.Default)
					case p.Kind == block.Scalar:
						fmt.Fprintf(w, "\t%s\t%v scalar\t%v\t\n", p.Name, p.Direction, p.Default)
					default:
						fmt.Fprintf(w, "\t%s\t%v %v stream\t\t\n", p.Name, p.Direction, p.Signal)
					}
				}
			}
			return w.Flush()
		},
	}
}
