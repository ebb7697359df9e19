// Package main provides the main entry point for the identifier generator service
package main

import "github.com/amirphl/orochi-idgen/cmd"

func main() {
	cmd.Execute()
}
