package main

import "github.com/sboehler/folio/cmd"

func main() {
	cmd.Execute()
}
