/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/phicore/phistore/cmd/phistore/cmd"
)

func main() {
	cmd.Execute()
}
