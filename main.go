/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/podracer/cmd"

func main() {
	cmd.Execute()
}
