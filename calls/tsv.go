// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package calls

import (
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// ReadTSV reads calls from a TSV stream. The first row must be a header
// naming the "start" and "end" columns; other columns are ignored. Lines
// starting with '#' are skipped. The calls are returned in file order and
// are not validated.
func ReadTSV(in io.Reader) ([]Call, error) {
	r := tsv.NewReader(in)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	r.Comment = '#'
	var calls []Call
	for {
		var c Call
		err := r.Read(&c)
		if err == io.EOF {
			return calls, nil
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("reading call %d", len(calls)), err)
		}
		calls = append(calls, c)
	}
}

// WriteProfile writes one TSV row per call with its concurrency count,
// preceded by a "start	end	concurrent" header. len(counts) must equal
// len(calls).
func WriteProfile(out io.Writer, calls []Call, counts []int) error {
	if len(calls) != len(counts) {
		return errors.E(errors.Invalid, fmt.Sprintf("profile: %d calls but %d counts", len(calls), len(counts)))
	}
	w := tsv.NewWriter(out)
	w.WriteString("start")
	w.WriteString("end")
	w.WriteString("concurrent")
	if err := w.EndLine(); err != nil {
		return err
	}
	for i, c := range calls {
		w.WriteFloat64(c.Start, 'g', -1)
		w.WriteFloat64(c.End, 'g', -1)
		w.WriteInt64(int64(counts[i]))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
