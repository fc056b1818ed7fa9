package main

import (
	"os"

	"github.com/SscSPs/remittance_ledger/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
