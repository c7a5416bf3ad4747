// sccs-fast-export walks a tree of SCCS history files and emits a
// fast-import command stream for them on a fresh branch.
package main

// SPDX-License-Identifier: BSD-2-Clause

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	term "golang.org/x/term"

	"github.com/robohack/sccs-fast-export/sccs"
)

var (
	branch      string
	maildomain  string
	tz          string
	moveDateArg string
	moveZoneArg string
	noTags      bool
	authormap   string
	fuzzyWindow time.Duration
	toStdout    bool
	importCmd   string
	dirs        bool
	expandKw    bool
	useSccs     bool
	quiet       bool

	progress bool
)

// croak reports a fatal import error and exits. A partial repository is
// worse than no repository, so nothing is recovered past this point.
func croak(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sccs-fast-export: "+format+"\n", args...)
	os.Exit(1)
}

// logit reports a non-fatal diagnostic to stderr with an RFC 3339
// timestamp, so interleaved output from long runs stays attributable.
func logit(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s sccs-fast-export: %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

func main() {
	flags := flag.NewFlagSet("sccs-fast-export", flag.ExitOnError)
	flags.StringVar(&branch, "branch", "master", "destination branch name")
	flags.StringVar(&maildomain, "maildomain", "", "mail domain for synthesized committer addresses")
	flags.StringVar(&tz, "tz", "", "global default timezone (±HHMM or IANA name)")
	flags.StringVar(&moveDateArg, "move-date", "", "YYYY/MM/DDTHH:MM:SS after which -move-zone applies")
	flags.StringVar(&moveZoneArg, "move-zone", "", "timezone to apply from -move-date onward")
	flags.BoolVar(&noTags, "no-tags", false, "disable release-tag inference on SID level transitions")
	flags.StringVar(&authormap, "authormap", "", "path to an author-map file")
	flags.DurationVar(&fuzzyWindow, "fuzzy-commit-window", 5*time.Minute, "max time span for fuzzy commit coalescing")
	flags.BoolVar(&toStdout, "stdout", false, "write the fast-import stream to standard output")
	flags.StringVar(&importCmd, "import-cmd", "git fast-import", "command the stream is piped to when -stdout is not set")
	flags.BoolVar(&dirs, "dirs", false, "treat positional arguments as directories to search recursively for s.* files")
	flags.BoolVar(&expandKw, "expand-kw", false, "expand SCCS ID keywords in fetched bodies")
	flags.BoolVar(&useSccs, "use-sccs", false, "invoke get/val through the sccs(1) front end")
	flags.BoolVar(&quiet, "q", false, "suppress the progress indicator")
	flags.Parse(os.Args[1:])

	progress = !quiet && term.IsTerminal(int(os.Stderr.Fd()))

	args := flags.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sccs-fast-export [options] <file-or-dir>...")
		os.Exit(2)
	}

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sccs-fast-export: %v\n", err)
		os.Exit(2)
	}

	paths, err := discoverFiles(args)
	if err != nil {
		croak("discovering SCCS files: %v", err)
	}
	if len(paths) == 0 {
		croak("no SCCS files found")
	}

	files, err := buildFileDescriptors(paths, cfg)
	if err != nil {
		croak("%v", err)
	}

	groups := sccs.Aggregate(files, cfg.FuzzyWindow)

	sink, closeSink, err := openSink()
	if err != nil {
		croak("%v", err)
	}

	fetcher := sccs.SccsCommand{UseSccs: useSccs, ExpandKeywords: expandKw, Diag: logit}
	emitter := sccs.NewStreamEmitter(sink, cfg)
	ncommits, err := emitter.Emit(groups, fetcher)
	closeErr := closeSink()
	if err != nil {
		croak("%v", err)
	}
	if closeErr != nil {
		croak("%v", closeErr)
	}

	ndeltas := 0
	for _, f := range files {
		ndeltas += len(f.Deltas)
	}
	logit("%d SCCS deltas in %d git commits", ndeltas, ncommits)
}

// buildConfig assembles the immutable sccs.Config from parsed flags,
// resolving the author map and the default/move zones up front so
// construction errors are reported as usage failures.
func buildConfig() (sccs.Config, error) {
	cfg := sccs.Config{
		Branch:         branch,
		MailDomain:     maildomain,
		FuzzyWindow:    fuzzyWindow,
		Tags:           !noTags,
		ExpandKeywords: expandKw,
	}

	if authormap != "" {
		am, err := sccs.ParseAuthorMap(authormap)
		if err != nil {
			return cfg, err
		}
		cfg.AuthorMap = am
	}

	if tz != "" {
		loc, err := sccs.ParseZone(tz)
		if err != nil {
			return cfg, fmt.Errorf("-tz %q: %v", tz, err)
		}
		cfg.DefaultZone = loc
	}

	if moveDateArg != "" {
		if moveZoneArg == "" {
			return cfg, errors.New("-move-date requires -move-zone")
		}
		zone := cfg.DefaultZone
		if zone == nil {
			zone = time.Local
		}
		when, err := time.ParseInLocation("2006/01/02T15:04:05", moveDateArg, zone)
		if err != nil {
			return cfg, fmt.Errorf("-move-date %q: %v", moveDateArg, err)
		}
		moveZone, err := sccs.ParseZone(moveZoneArg)
		if err != nil {
			return cfg, fmt.Errorf("-move-zone %q: %v", moveZoneArg, err)
		}
		cfg.MoveDate = &when
		cfg.MoveZone = moveZone
	}

	if useSccs {
		sc := sccs.SccsCommand{UseSccs: true, Diag: logit}
		cfg.ExternalValidate = sc.Val
	}

	return cfg, nil
}

// discoverFiles walks each named root for files whose base name starts
// with "s." when -dirs is given; otherwise the positional arguments are
// taken as literal SCCS file paths.
func discoverFiles(args []string) ([]string, error) {
	if !dirs {
		return args, nil
	}
	var out []string
	for _, root := range args {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logit("skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasPrefix(d.Name(), "s.") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// buildFileDescriptors fans FileDescriptor construction out across a
// bounded worker pool keyed by GOMAXPROCS, then recovers NotAnSccsFile per
// file while letting every other error kind abort the run.
func buildFileDescriptors(paths []string, cfg sccs.Config) ([]*sccs.FileDescriptor, error) {
	type result struct {
		fd  *sccs.FileDescriptor
		err error
	}
	results := make([]result, len(paths))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	var done int
	var mu sync.Mutex

	for i, p := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p string) {
			defer wg.Done()
			defer func() { <-sem }()
			fd, err := sccs.NewFileDescriptor(p, cfg, logit)
			results[i] = result{fd: fd, err: err}
			if progress {
				mu.Lock()
				done++
				fmt.Fprintf(os.Stderr, "\rsccs-fast-export: %d/%d files", done, len(paths))
				mu.Unlock()
			}
		}(i, p)
	}
	wg.Wait()
	if progress {
		fmt.Fprintln(os.Stderr)
	}

	out := make([]*sccs.FileDescriptor, 0, len(paths))
	for i, r := range results {
		if r.err != nil {
			var serr *sccs.Error
			if errors.As(r.err, &serr) && serr.Kind == sccs.NotAnSccsFile {
				logit("skipping %s: %v", paths[i], r.err)
				continue
			}
			return nil, r.err
		}
		out = append(out, r.fd)
	}
	return out, nil
}

// openSink returns the fast-import stream destination -- standard output,
// or a subprocess's stdin -- and a function to close it and await the
// subprocess's exit, reflecting a non-zero exit as an error. The sink is
// scoped with guaranteed release on every exit path.
func openSink() (io.Writer, func() error, error) {
	if toStdout {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}

	fields := strings.Fields(importCmd)
	if len(fields) == 0 {
		return nil, nil, errors.New("-import-cmd is empty")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	pipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	closer := func() error {
		if cerr := pipe.Close(); cerr != nil {
			cmd.Wait()
			return sccs.NewError(sccs.StreamIOError, cerr, "closing fast-import sink")
		}
		if werr := cmd.Wait(); werr != nil {
			return sccs.NewError(sccs.StreamIOError, werr, "fast-import subprocess")
		}
		return nil
	}
	return pipe, closer, nil
}
