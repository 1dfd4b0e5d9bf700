package main

import "treetally/cmd"

func main() {
	cmd.Execute()
}
