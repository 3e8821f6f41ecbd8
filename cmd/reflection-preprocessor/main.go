// Command reflection-preprocessor reads a target-file list and an
// already-preprocessed input-file list and emits a single C source file
// that registers the target declarations' metadata with the reflection
// registry at runtime.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/KonstantinTomashevich/kan-codegen/reflectgen"
)

var dashv bool

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: reflection-preprocessor [-v] PRODUCT UNIT TARGET_LIST INPUT_LIST")
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(reflectgen.RunCLI(flag.Args(), dashv))
}
