package main

import "ContractGuard/internal/cli"

func main() {
	cli.Execute()
}
