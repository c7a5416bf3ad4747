package sccs

import "time"

// Config is the immutable set of knobs that governs a single import run. It
// is built once by the caller and threaded through every constructor in
// this package; nothing in this package keeps process-wide mutable state.
type Config struct {
	// Branch is the short name of the destination branch; commits are
	// written to refs/heads/<Branch>.
	Branch string
	// MailDomain synthesizes "login@MailDomain" addresses for committers
	// with no author-map entry, whether or not a GECOS name was found.
	// Empty means emit the bare login as the address.
	MailDomain string
	// FuzzyWindow bounds how far apart (in time) two deltas may be and
	// still coalesce into one CommitGroup.
	FuzzyWindow time.Duration
	// DefaultZone is consulted for a delta's timestamp when the
	// committer has no author-map zone. Nil means use the host's local
	// zone.
	DefaultZone *time.Location
	// MoveDate and MoveZone implement the single zone change applied by
	// ResolveTimestamp. MoveZone must be set whenever MoveDate is.
	MoveDate *time.Time
	MoveZone *time.Location
	// Tags enables release-tag inference on SID level transitions.
	Tags bool
	// AuthorMap is the parsed author-map file, or nil if none was given.
	AuthorMap *AuthorMap
	// ExpandKeywords is forwarded to the BodyFetcher collaborator; the
	// core treats it as opaque.
	ExpandKeywords bool
	// ExternalValidate, if set, is consulted by FileDescriptor construction
	// in addition to the header checksum-line check ("validation
	// may also be delegated to an external tool"). Nil means header-only
	// validation.
	ExternalValidate func(path string) bool
}

// ImportRef is the fully-qualified ref this configuration writes commits to.
func (c Config) ImportRef() string {
	return "refs/heads/" + c.Branch
}
