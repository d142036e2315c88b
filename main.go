// The main package for the eventlens executable.
package main

import "github.com/eventlens/crawler/cmd"

func main() {
	cmd.Execute()
}
