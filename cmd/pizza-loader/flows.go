package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flowCmd = &cobra.Command{
	Use:   "flow NAME SLUG DESCRIPTION",
	Short: "Create a flow",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLoader(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		id, err := l.CreateFlow(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Flow created: %s\n", id)
		return nil
	},
}

var fieldCmd = &cobra.Command{
	Use:   "field FLOW_ID NAME SLUG FIELD_TYPE DESCRIPTION",
	Short: "Create a required field in a flow",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLoader(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		id, err := l.CreateField(cmd.Context(), args[0], args[1], args[2], args[3], args[4])
		if err != nil {
			return err
		}
		fmt.Printf("Field created: %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flowCmd, fieldCmd)
}
