package main

import (
	"protoscope/cmd"
	"protoscope/internal/capture/live"
)

func main() {
	cmd.SetCapturer(live.Opener{})
	cmd.Execute()
}
