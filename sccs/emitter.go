package sccs

// Copyright by Greg A. Woods, after James Youngman
// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"io"
	"strings"
)

// BodyFetcher returns the raw byte content of one delta's revision. A
// zero-length result is valid and yields a deletion record. The core
// treats it as an opaque collaborator; SccsCommand is the wired
// implementation that actually shells out.
type BodyFetcher interface {
	Fetch(file *FileDescriptor, delta *Delta) ([]byte, error)
}

// StreamEmitter writes the fast-import command stream for an ordered
// sequence of CommitGroups. Records go straight to the sink as they are
// formed; the stream is never accumulated in memory.
type StreamEmitter struct {
	sink       io.Writer
	cfg        Config
	mark       int
	parentMark int
	usedTags   map[string]int
}

// NewStreamEmitter wraps sink (stdout or a subprocess's stdin) with the mark
// counter and the parent-mark/tag-label bookkeeping Emit needs.
func NewStreamEmitter(sink io.Writer, cfg Config) *StreamEmitter {
	return &StreamEmitter{sink: sink, cfg: cfg, mark: 1, usedTags: make(map[string]int)}
}

// Emit writes every commit group in order, interleaving release tags on SID
// level transitions when cfg.Tags is set, and returns the number of
// commits written.
func (e *StreamEmitter) Emit(groups []*CommitGroup, fetcher BodyFetcher) (int, error) {
	var pdelta *Delta
	var lastMark int
	for _, g := range groups {
		first := g.Members[0].Delta
		if e.cfg.Tags && pdelta != nil && sidLevel(first.Sid) > sidLevel(pdelta.Sid) && sidRev(first.Sid) == 1 {
			if err := e.emitTag(pdelta, lastMark); err != nil {
				return 0, err
			}
		}
		mark, err := e.emitCommit(g, fetcher)
		if err != nil {
			return 0, err
		}
		lastMark = mark
		pdelta = first
	}
	return len(groups), nil
}

func (e *StreamEmitter) emitCommit(g *CommitGroup, fetcher BodyFetcher) (int, error) {
	first := g.Members[0].Delta
	firstFile := g.Members[0].File
	mark := e.mark
	e.mark++

	if err := e.printf("commit %s\n", e.cfg.ImportRef()); err != nil {
		return 0, err
	}
	if err := e.printf("mark :%d\n", mark); err != nil {
		return 0, err
	}
	if err := e.printf("original-oid %s-%s-%d\n", firstFile.TargetPath, first.Sid, first.Seqno); err != nil {
		return 0, err
	}

	who := Resolve(first.CommitterLogin, e.cfg.AuthorMap, e.cfg.MailDomain)
	if err := e.printf("committer %s %d %s\n", who.Identity, first.Timestamp.Unix(), first.TzOffsetDisplay); err != nil {
		return 0, err
	}
	if err := e.writeData([]byte(commitMessage(first))); err != nil {
		return 0, err
	}
	if e.parentMark != 0 {
		if err := e.printf("from :%d\n", e.parentMark); err != nil {
			return 0, err
		}
	}

	for _, m := range g.Members {
		body, err := fetcher.Fetch(m.File, m.Delta)
		if err != nil {
			return 0, newError(BodyFetchError, err, m.File.TargetPath)
		}
		if len(body) == 0 {
			if err := e.printf("D %s\n", m.File.TargetPath); err != nil {
				return 0, err
			}
			continue
		}
		if err := e.printf("M %s inline %s\n", m.File.Mode, m.File.TargetPath); err != nil {
			return 0, err
		}
		if err := e.writeData(body); err != nil {
			return 0, err
		}
	}

	if _, err := e.sink.Write([]byte("\n")); err != nil {
		return 0, wrapIOErr(err)
	}
	e.parentMark = mark
	return mark, nil
}

// emitTag emits a "tag <label>" record referencing mark, tagged with
// pdelta's identity, timestamp, and commit message. On a tag-label
// collision the label gets a ".N" suffix from a per-base-label counter.
func (e *StreamEmitter) emitTag(pdelta *Delta, mark int) error {
	base := fmt.Sprintf("v%d", sidLevel(pdelta.Sid))
	n := e.usedTags[base]
	label := base
	if n > 0 {
		label = fmt.Sprintf("%s.%d", base, n)
	}
	e.usedTags[base] = n + 1

	if err := e.printf("tag %s\n", label); err != nil {
		return err
	}
	if err := e.printf("from :%d\n", mark); err != nil {
		return err
	}
	who := Resolve(pdelta.CommitterLogin, e.cfg.AuthorMap, e.cfg.MailDomain)
	if err := e.printf("tagger %s %d %s\n", who.Identity, pdelta.Timestamp.Unix(), pdelta.TzOffsetDisplay); err != nil {
		return err
	}
	return e.writeData([]byte(commitMessage(pdelta)))
}

// commitMessage builds a commit/tag message body: the delta's comment, plus
// (if it carries MRs) an "Issue(s): #m1, #m2, ..." trailer.
func commitMessage(d *Delta) string {
	msg := d.Comment
	if len(d.Mrs) == 0 {
		return msg
	}
	label := "Issue"
	if len(d.Mrs) > 1 {
		label = "Issues"
	}
	ids := make([]string, len(d.Mrs))
	for i, m := range d.Mrs {
		ids[i] = "#" + m
	}
	if msg != "" {
		msg += "\n"
	}
	return msg + label + ": " + strings.Join(ids, ", ")
}

func (e *StreamEmitter) printf(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(e.sink, format, args...); err != nil {
		return wrapIOErr(err)
	}
	return nil
}

func (e *StreamEmitter) writeData(data []byte) error {
	if err := e.printf("data %d\n", len(data)); err != nil {
		return err
	}
	if _, err := e.sink.Write(data); err != nil {
		return wrapIOErr(err)
	}
	if _, err := e.sink.Write([]byte("\n")); err != nil {
		return wrapIOErr(err)
	}
	return nil
}

func wrapIOErr(err error) error {
	return newError(StreamIOError, err, "")
}
