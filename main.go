// ./main.go
package main

import (
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/cmd"
)

// main is the entry point for the skims CLI.
func main() {
	cmd.Execute()
}
