// Package main runs the desim command-line tool.
package main

import "github.com/sarchlab/desim/desim/cmd"

func main() {
	cmd.Execute()
}
