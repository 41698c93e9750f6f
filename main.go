package main

import "github.com/ostrab/kpdl/cmd"

func main() {
	cmd.Execute()
}
