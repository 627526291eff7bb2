package main

import "github.com/ValentinKolb/otick/cmd"

func main() {
	cmd.Execute()
}
