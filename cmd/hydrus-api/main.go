package main

import "github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/cli"

func main() {
	cli.Execute()
}
