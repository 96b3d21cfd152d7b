package main

import (
	"os"

	"github.com/amptracker/amp-tracker/trackerservice"
)

func main() {
	if err := trackerservice.Run(); err != nil {
		os.Exit(1)
	}
}
