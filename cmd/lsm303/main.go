package main

import (
	"github.com/westphae/goecompass/internal/cmd"
)

func main() {
	cmd.Execute()
}
