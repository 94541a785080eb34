// Package main provides the webagent CLI: the HTTP server and one-shot
// research runs from the terminal.
package main

func main() {
	Execute()
}
