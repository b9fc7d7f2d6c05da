package main

import (
	"os"

	"github.com/josephlewis42/myshell/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
