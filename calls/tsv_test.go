// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package calls_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/maxcalls/calls"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestReadTSV(t *testing.T) {
	in := "start\tend\n# comment\n1.02\t5.2\n3.02\t6.2\n"
	c, err := calls.ReadTSV(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, c, []calls.Call{{1.02, 5.2}, {3.02, 6.2}})

	// Columns are matched by name.
	c, err = calls.ReadTSV(strings.NewReader("end\tstart\n2\t1\n"))
	assert.NoError(t, err)
	expect.EQ(t, c, []calls.Call{{1, 2}})

	c, err = calls.ReadTSV(strings.NewReader("start\tend\n"))
	assert.NoError(t, err)
	expect.EQ(t, len(c), 0)
}

func TestReadTSVError(t *testing.T) {
	for _, in := range []string{
		"",
		"start\n1\n",
		"start\tend\n1\tx\n",
		"start\tend\n1\t2\t3\n",
	} {
		_, err := calls.ReadTSV(strings.NewReader(in))
		expect.True(t, err != nil, "input %q", in)
	}
	_, err := calls.ReadTSV(strings.NewReader("start\tend\n1\t2\n1\tx\n"))
	expect.True(t, errors.Is(errors.Invalid, err))
	expect.HasSubstr(t, err.Error(), "reading call 1")
}

func TestWriteProfile(t *testing.T) {
	var buf bytes.Buffer
	err := calls.WriteProfile(&buf, []calls.Call{{1.02, 5.2}, {3, 4}}, []int{1, 2})
	assert.NoError(t, err)
	expect.EQ(t, buf.String(), "start\tend\tconcurrent\n1.02\t5.2\t1\n3\t4\t2\n")

	err = calls.WriteProfile(&buf, []calls.Call{{1, 2}}, nil)
	expect.True(t, errors.Is(errors.Invalid, err))
}
