package main

import "github.com/scienceol/recovery/cmd"

func main() {
	cmd.Execute()
}
