package main

import "github.com/zakimal/zero-chain-ui/cmd/zerochain-ui/cmd"

func main() {
	cmd.Execute()
}
