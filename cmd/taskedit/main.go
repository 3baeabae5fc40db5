// Command taskedit edits tasks on a taskboard server, either through a
// full-screen board or one operation at a time.
package main

import "os"

var version = "dev"

func main() {
	if err := Execute(version); err != nil {
		os.Exit(1)
	}
}
