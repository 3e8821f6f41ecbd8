// Command universe-preprocessor expands KAN_UP_* macros inside a single
// annotated translation unit into concrete repository-query field
// declarations and cursor control flow.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/KonstantinTomashevich/kan-codegen/universegen"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: universe-preprocessor INPUT OUTPUT")
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(universegen.RunCLI(flag.Args()))
}
