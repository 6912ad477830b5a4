package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glebk/pizza-bot/internal/loader"
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Load pizzerias from an addresses file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var pizzerias []loader.Pizzeria
		if err := loader.ReadFile(file, &pizzerias); err != nil {
			return err
		}

		l, err := newLoader(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		if err := l.LoadPizzerias(cmd.Context(), pizzerias); err != nil {
			return err
		}
		fmt.Printf("Created %d pizzerias\n", len(pizzerias))
		return nil
	},
}

func init() {
	addressesCmd.Flags().StringP("file", "f", "addresses.json", "Addresses file")
	rootCmd.AddCommand(addressesCmd)
}
