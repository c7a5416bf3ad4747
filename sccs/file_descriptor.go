package sccs

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDescriptor represents one SCCS file: its source path, sanitized target
// path, target file mode, and its ordered list of deltas. It owns
// its Deltas exclusively; the Aggregator only ever holds back-references.
type FileDescriptor struct {
	SourcePath string
	TargetPath string
	Mode       string
	Deltas     []*Delta
}

// NewFileDescriptor builds a FileDescriptor from a candidate SCCS file path.
// It reads the header, filters the revision list, resolves every surviving
// delta's metadata (including its timestamp, which depends on the
// author-map zone looked up per committer), and computes the sanitized
// target path and mode.
func NewFileDescriptor(path string, cfg Config, diag DiagSink) (*FileDescriptor, error) {
	lines, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}
	if cfg.ExternalValidate != nil && !cfg.ExternalValidate(path) {
		return nil, newError(NotAnSccsFile, nil, path)
	}

	revisions := RevisionList(lines, diag, path)
	deltas := make([]*Delta, 0, len(revisions))
	for _, sid := range revisions {
		delta, err := ParseDelta(lines, sid)
		if err != nil {
			return nil, err
		}
		zone := cfg.AuthorMap.ZoneFor(delta.CommitterLogin)
		ts, offset, err := ResolveTimestamp(delta.CreationDate, delta.CreationTime, zone, cfg.DefaultZone, cfg.MoveDate, cfg.MoveZone)
		if err != nil {
			return nil, err
		}
		delta.Timestamp = ts
		delta.TzOffsetDisplay = offset
		deltas = append(deltas, delta)
	}

	target, err := computeTargetPath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(NotAnSccsFile, err, path)
	}
	mode := "644"
	if info.Mode()&0111 != 0 {
		mode = "755"
	}

	return &FileDescriptor{
		SourcePath: path,
		TargetPath: target,
		Mode:       mode,
		Deltas:     deltas,
	}, nil
}

// computeTargetPath sanitizes an SCCS source path into the path it is
// imported as: absolute paths and "..". are rejected, the leading
// "s." is stripped from the filename, and an immediately enclosing "SCCS"
// directory component is removed.
func computeTargetPath(srcPath string) (string, error) {
	if filepath.IsAbs(srcPath) {
		return "", newError(BadPath, nil, srcPath)
	}
	vol := filepath.VolumeName(srcPath)
	rest := strings.TrimPrefix(srcPath, vol)
	clean := filepath.ToSlash(filepath.Clean(rest))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", newError(BadPath, nil, srcPath)
	}
	clean = strings.TrimPrefix(clean, "/")

	parts := strings.Split(clean, "/")
	base := parts[len(parts)-1]
	base = strings.TrimPrefix(base, "s.")
	parts[len(parts)-1] = base

	if len(parts) >= 2 && parts[len(parts)-2] == "SCCS" {
		parts = append(parts[:len(parts)-2], parts[len(parts)-1])
	}
	return strings.Join(parts, "/"), nil
}
