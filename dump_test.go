package menuagent

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFdump(t *testing.T) {
	var buf bytes.Buffer
	fdump(&buf, 1, map[string]int{"zucchini": 2, "apple": 1})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "dump_test.go:"), out)
	assert.Less(t, strings.Index(out, "apple"), strings.Index(out, "zucchini"), "keys are sorted")
}
