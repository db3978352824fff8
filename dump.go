package menuagent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump pretty-prints v to stderr under the caller's file and line.
func Dump(v ...any) {
	fdump(os.Stderr, 2, v...)
}

func fdump(w io.Writer, skip int, v ...any) {
	if _, file, line, ok := runtime.Caller(skip); ok {
		fmt.Fprintf(w, "%s:%d:\n", filepath.Base(file), line)
	}
	dumpConfig.Fdump(w, v...)
}
