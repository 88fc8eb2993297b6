package main

import (
	"fmt"
	"os"

	"garagevision-backend/cmd/ad360-cli/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("PARTSCATALOG_BASE_URL")
	if !ok {
		fmt.Println("You should specify the base url of the parts catalog service in the environment variable PARTSCATALOG_BASE_URL.")
		os.Exit(1)
	}
	cmd.BaseUrl = baseUrl

	cmd.Execute()
}
