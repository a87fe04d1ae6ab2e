package main

import "github.com/callendorph/mturkemu/cmd"

func main() {
	cmd.Execute()
}
