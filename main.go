package main

import (
	"os"

	"github.com/tonhe/fritzmon/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
