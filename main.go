package main

import "github.com/mselser95/crossmarket-arb/cmd"

func main() {
	cmd.Execute()
}
