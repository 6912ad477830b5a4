package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glebk/pizza-bot/internal/loader"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Load products from a menu file",
	Long:  `Creates every product whose SKU is not in the catalog yet, with its price and main image.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var menu []loader.MenuItem
		if err := loader.ReadFile(file, &menu); err != nil {
			return err
		}

		l, err := newLoader(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		created, err := l.LoadProducts(cmd.Context(), menu)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d of %d products\n", created, len(menu))
		return nil
	},
}

func init() {
	productsCmd.Flags().StringP("file", "f", "menu.json", "Menu file")
	rootCmd.AddCommand(productsCmd)
}
