package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var BaseUrl string

var client *resty.Client

var tenantID int64
var supplierID int64

var rootCmd = &cobra.Command{
	Use:   "ad360-cli",
	Short: "ad360-cli is a CLI interface for the AD360 parts catalog service.",
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&tenantID, "tenant", 1, "tenant id")
	rootCmd.PersistentFlags().Int64Var(&supplierID, "supplier", 7, "supplier id")
}

func Execute() {
	client = resty.New().
		SetBaseURL(BaseUrl).
		SetTimeout(time.Minute * 2)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fail prints the service's error body when there is one, since it
// usually names the exact failure mode (needs_relink, not_cached...).
func fail(res *resty.Response, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", res.Status(), res.String())
	os.Exit(1)
}
