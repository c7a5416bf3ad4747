package sccs

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// SccsCommand shells out to the SCCS front-end tools -- "get" and "val"
// or their "sccs <verb>" equivalents -- to fetch delta bodies and,
// optionally, validate candidate files. It is the one place this program
// touches a real SCCS installation; everything else reads the history
// files directly. Command lines are built with go-shellquote and run
// through "sh -c" so paths with shell metacharacters survive.
type SccsCommand struct {
	UseSccs        bool
	ExpandKeywords bool
	Diag           DiagSink
}

func (s SccsCommand) verb(name string) []string {
	if s.UseSccs {
		return []string{"sccs", name}
	}
	return []string{name}
}

// Fetch implements BodyFetcher by running "get -p -s -a<seqno> [-k] <file>"
// (or its "sccs get" form) and capturing stdout. "-k" (suppress ID keyword
// expansion) is passed unless ExpandKeywords is set.
func (s SccsCommand) Fetch(file *FileDescriptor, delta *Delta) ([]byte, error) {
	argv := s.verb("get")
	argv = append(argv, "-p", "-s", fmt.Sprintf("-a%d", delta.Seqno))
	if !s.ExpandKeywords {
		argv = append(argv, "-k")
	}
	argv = append(argv, file.SourcePath)
	out, err := s.run(argv)
	if err != nil {
		return nil, newError(BodyFetchError, err, file.SourcePath)
	}
	return out, nil
}

// Val runs "val <file>" (or "sccs val <file>") and reports whether the
// external tool accepts it as a valid SCCS history. Suitable as
// Config.ExternalValidate.
func (s SccsCommand) Val(path string) bool {
	_, err := s.run(append(s.verb("val"), path))
	return err == nil
}

func (s SccsCommand) run(argv []string) ([]byte, error) {
	quoted := shellquote.Join(argv...)
	cmd := exec.Command("sh", "-c", quoted)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s.Diag != nil {
			s.Diag("%s: %s", strings.Join(argv, " "), strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
