package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

type accountStatus struct {
	Linked         bool  `json:"linked"`
	ConsentGivenAt int64 `json:"consentGivenAt"`
	LinkedAt       int64 `json:"linkedAt"`
	LastUsedAt     int64 `json:"lastUsedAt"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the link status of the supplier account.",
	Run: func(cmd *cobra.Command, args []string) {
		var status accountStatus
		res, err := client.R().
			SetContext(cmd.Context()).
			SetQueryParam("tenantId", fmt.Sprint(tenantID)).
			SetQueryParam("supplierId", fmt.Sprint(supplierID)).
			SetResult(&status).
			Get("/status")
		if err != nil || res.IsError() {
			fail(res, err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Linked", "Consent", "Linked at", "Last used"})
		t.AppendRow(table.Row{
			status.Linked,
			formatUnix(status.ConsentGivenAt),
			formatUnix(status.LinkedAt),
			formatUnix(status.LastUsedAt),
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format(time.ANSIC)
}
