package main

import "github.com/astrosolve/spectral/cmd"

func main() {
	cmd.Execute()
}
