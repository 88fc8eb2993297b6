package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var cookiesFile string

func init() {
	linkCmd.Flags().StringVar(&cookiesFile, "cookies", "", "path to a JSON file holding the captured portal cookies")
	linkCmd.MarkFlagRequired("cookies")
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Links a captured portal session to the supplier account.",
	Long: "Links a captured portal session to the supplier account. " +
		"Running this command records the tenant's consent to store the session.",
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(cookiesFile)
		if err != nil {
			log.Fatal(err)
		}
		var cookies []json.RawMessage
		if err := json.Unmarshal(raw, &cookies); err != nil {
			log.Fatal(fmt.Errorf("cookies file must hold a JSON array: %w", err))
		}

		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("content-type", "application/json").
			SetBody(map[string]any{
				"tenantId":   tenantID,
				"supplierId": supplierID,
				"cookies":    json.RawMessage(raw),
				"consent":    true,
			}).
			Post("/link")
		if err != nil || res.IsError() {
			fail(res, err)
		}
		fmt.Println("linked")
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Discards the stored portal session for the supplier account.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]any{
				"tenantId":   tenantID,
				"supplierId": supplierID,
			}).
			Post("/unlink")
		if err != nil || res.IsError() {
			fail(res, err)
		}
		fmt.Println("unlinked")
	},
}
