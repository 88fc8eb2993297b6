package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var vin string
var reg string

func init() {
	variantsCmd.Flags().StringVar(&vin, "vin", "", "vehicle identification number")
	variantsCmd.Flags().StringVar(&reg, "reg", "", "registration plate")
	rootCmd.AddCommand(variantsCmd)
}

type vehicleVariant struct {
	Make    string `json:"make"`
	Model   string `json:"model"`
	Version string `json:"version"`
	Power   string `json:"power"`
	KW      string `json:"kw"`
	Engine  string `json:"engine"`
	Years   string `json:"years"`
}

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Lists the variant candidates the portal offers for a vehicle.",
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			Variants []vehicleVariant `json:"variants"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]any{
				"tenantId":   tenantID,
				"supplierId": supplierID,
				"vin":        vin,
				"reg":        reg,
			}).
			SetResult(&body).
			Post("/variants")
		if err != nil || res.IsError() {
			fail(res, err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Make", "Model", "Version", "Power", "KW", "Engine", "Years"})
		for i, v := range body.Variants {
			t.AppendRow(table.Row{i, v.Make, v.Model, v.Version, v.Power, v.KW, v.Engine, v.Years})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
