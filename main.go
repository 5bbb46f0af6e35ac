package main

import (
	_ "time/tzdata"

	"github.com/frahmantamala/lingkungan/cmd"
)

func main() {
	cmd.Execute()
}
