package main

import (
	"github.com/glowlab/studioport/cmd"
)

func main() {
	cmd.Execute()
}
