package main

import "github.com/alapierre/go-etims-receipts/cmd"

func main() {
	cmd.Execute()
}
