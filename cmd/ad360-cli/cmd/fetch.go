package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchVin string
var fetchReg string
var searchQuery string

func init() {
	fetchCmd.Flags().StringVar(&fetchVin, "vin", "", "vehicle identification number")
	fetchCmd.Flags().StringVar(&fetchReg, "reg", "", "registration plate")
	rootCmd.AddCommand(fetchCmd)

	searchCmd.Flags().StringVar(&fetchVin, "vin", "", "vehicle identification number")
	searchCmd.Flags().StringVar(&fetchReg, "reg", "", "registration plate")
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "free text to filter by")
	rootCmd.AddCommand(searchCmd)
}

type price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type canonicalPart struct {
	Brand       string `json:"brand"`
	PartNumber  string `json:"partNumber"`
	Description string `json:"description"`
	Price       price  `json:"price"`
	Stock       string `json:"stock"`
}

func renderParts(parts []canonicalPart) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Brand", "Part number", "Description", "Price", "Stock"})
	for _, p := range parts {
		t.AppendRow(table.Row{
			p.Brand,
			p.PartNumber,
			p.Description,
			fmt.Sprintf("%.2f %s", p.Price.Amount, p.Price.Currency),
			p.Stock,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "total", len(parts)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches the normalized parts catalog for a vehicle through the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			Parts []canonicalPart `json:"parts"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]any{
				"tenantId":   tenantID,
				"supplierId": supplierID,
				"vin":        fetchVin,
				"reg":        fetchReg,
			}).
			SetResult(&body).
			Post("/parts")
		if err != nil || res.IsError() {
			fail(res, err)
		}
		renderParts(body.Parts)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Searches the cached catalog of a vehicle without touching the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			Parts []canonicalPart `json:"parts"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]any{
				"tenantId":   tenantID,
				"supplierId": supplierID,
				"vin":        fetchVin,
				"reg":        fetchReg,
				"query":      searchQuery,
			}).
			SetResult(&body).
			Post("/search")
		if err != nil || res.IsError() {
			fail(res, err)
		}
		renderParts(body.Parts)
	},
}
