package main

import (
	"os"

	"github.com/jobharvest/rod-jobs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
