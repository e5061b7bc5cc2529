package main

import "github.com/kozaktomas/photo-ingest/cmd"

func main() {
	cmd.Execute()
}
