package main

import (
	"github.com/friedchicken888/cab432-a2/cmd"
)

func main() {
	cmd.Execute()
}
