package sccs

// Copyright by Greg A. Woods, after James Youngman
// SPDX-License-Identifier: BSD-2-Clause

import (
	"bytes"
	"strconv"
	"strings"

	orderedset "github.com/emirpasic/gods/sets/linkedhashset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DiagSink receives human-readable diagnostics for conditions that don't
// abort the run (a skipped file, a rejected SID). It is passed as a plain
// function value rather than written to a global control block, so this
// package keeps no process-wide mutable state.
type DiagSink func(format string, args ...interface{})

// RevisionList scans header lines for every "<ctrl>d D <sid> ..." line and
// returns the SIDs in encounter order, deduplicated, with lines beginning
// "<ctrl>d R " ignored and malformed SIDs rejected with a diagnostic.
func RevisionList(lines [][]byte, diag DiagSink, path string) []string {
	seen := orderedset.New()
	for _, line := range lines {
		if len(line) < 3 || line[0] != ctrl || line[1] != 'd' {
			continue
		}
		fields := strings.Fields(string(line))
		if len(fields) < 3 || fields[1] != "D" {
			continue
		}
		sid := fields[2]
		if !validSID(sid) {
			if diag != nil {
				diag("%s: skipping delta with invalid SID %q", path, sid)
			}
			continue
		}
		seen.Add(sid)
	}
	out := make([]string, 0, seen.Size())
	for _, v := range seen.Values() {
		out = append(out, v.(string))
	}
	return out
}

// ParseDelta locates the "<ctrl>d D <sid> ..." line for sid and reads its
// metadata block up to the terminating "<ctrl>e" line, relying on this
// field-position contract:
//
//	record-tag D sid creation-date creation-time committer seqno parent-seqno ...
func ParseDelta(lines [][]byte, sid string) (*Delta, error) {
	idx := -1
	var fields []string
	for i, line := range lines {
		if len(line) < 3 || line[0] != ctrl || line[1] != 'd' {
			continue
		}
		f := strings.Fields(string(line))
		if len(f) >= 3 && f[1] == "D" && f[2] == sid {
			idx = i
			fields = f
			break
		}
	}
	if idx == -1 {
		return nil, newError(MalformedDelta, nil, "sid %s: delta line not found", sid)
	}
	if len(fields) < 8 {
		return nil, newError(MalformedDelta, nil, "sid %s: delta line has too few fields", sid)
	}
	seqno, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, newError(MalformedDelta, err, "sid %s: bad seqno", sid)
	}
	parentSeqno, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, newError(MalformedDelta, err, "sid %s: bad parent seqno", sid)
	}

	d := &Delta{
		Sid:            sid,
		Type:           'D',
		Seqno:          seqno,
		ParentSeqno:    parentSeqno,
		CreationDate:   fields[3],
		CreationTime:   fields[4],
		CommitterLogin: fields[5],
	}

	var mrbuf, comment strings.Builder
	terminated := false
	for i := idx + 1; i < len(lines); i++ {
		line := lines[i]
		if len(line) < 2 || line[0] != ctrl {
			continue
		}
		switch line[1] {
		case 'e':
			terminated = true
		case 'c':
			if len(line) > 3 {
				comment.WriteString(decodeUTF8(line[3:]))
			}
		case 'm':
			if len(line) > 3 {
				mrbuf.WriteString(decodeUTF8(line[3:]))
			}
		}
		if terminated {
			break
		}
	}
	if !terminated {
		return nil, newError(MalformedDelta, nil, "sid %s: missing terminating control-e line", sid)
	}

	d.Comment = comment.String()
	// One <ctrl>m line may carry several MR numbers; the accumulated text is
	// tokenized on whitespace, order preserved, duplicates kept.
	d.Mrs = strings.Fields(mrbuf.String())
	return d, nil
}

// decodeUTF8 decodes comment/MR bytes as UTF-8, replacing invalid sequences
// rather than failing. The delta body itself is binary and never passed
// through this path.
func decodeUTF8(b []byte) string {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
	if err != nil {
		return string(bytes.ToValidUTF8(b, []byte("�")))
	}
	return string(out)
}
