package sccs

// Copyright by Greg A. Woods, after James Youngman
// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	fqme "gitlab.com/esr/fqme"
)

// UserInfo is the result of resolving an SCCS committer login to a display
// identity. It is never round-tripped back into its parts, so the formatted
// form is stored whole.
type UserInfo struct {
	Login    string
	Identity string // "Display Name <email>"; display name may be empty.
	Zone     *time.Location
}

type authorMapEntry struct {
	name  string
	email string
	zone  *time.Location
}

// AuthorMap is a parsed author-map file: a mapping from SCCS login (the
// unique key) to a display-name/email/zone override.
type AuthorMap struct {
	entries map[string]authorMapEntry
}

// authorMapLineRE matches the "[<display name> ]<email> [<zone>]" portion of
// an author-map entry, after its "<key> = " prefix has been split off.
var authorMapLineRE = regexp.MustCompile(`^(?:(.*?)\s+)?<([^>]*)>(?:\s+(\S+))?\s*$`)

// ParseAuthorMap reads an author-map file in this grammar:
//
//	<key> = [<display name> ]<email> [<zone>]
//
// one entry per line, "#"-prefixed lines are comments. Malformed lines fail
// with BadAuthorMap, naming the offending line number.
func ParseAuthorMap(path string) (*AuthorMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(BadAuthorMap, err, path)
	}
	am := &AuthorMap{entries: make(map[string]authorMapEntry)}
	for lineno, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, newError(BadAuthorMap, nil, "line %d", lineno+1)
		}
		key := strings.TrimSpace(line[:eq])
		rest := strings.TrimSpace(line[eq+1:])
		m := authorMapLineRE.FindStringSubmatch(rest)
		if m == nil || key == "" {
			return nil, newError(BadAuthorMap, nil, "line %d", lineno+1)
		}
		entry := authorMapEntry{name: strings.TrimSpace(m[1]), email: m[2]}
		if m[3] != "" {
			zone, zerr := ParseZone(m[3])
			if zerr != nil {
				return nil, newError(BadAuthorMap, zerr, "line %d: zone", lineno+1)
			}
			entry.zone = zone
		}
		am.entries[key] = entry
	}
	return am, nil
}

// ParseZone accepts either a "±HHMM" offset or an IANA zone name,
// usable both for author-map entries and for the cmd glue's -tz/-move-zone
// flags.
func ParseZone(s string) (*time.Location, error) {
	if loc, err := locationFromOffset(s); err == nil {
		return loc, nil
	}
	return time.LoadLocation(s)
}

// ZoneFor returns the author-map zone for login, or nil if am is nil or has
// no zone recorded for this login -- the first step of the zone-priority
// chain ResolveTimestamp applies.
func (am *AuthorMap) ZoneFor(login string) *time.Location {
	if am == nil {
		return nil
	}
	if e, ok := am.entries[login]; ok {
		return e.zone
	}
	return nil
}

// Resolve maps a committer login to a display identity, consulting (in
// order) the author map, the host user database's GECOS field, then a bare
// fallback that only borrows gitlab.com/esr/fqme.WhoAmI() when login names
// the invoking user and no GECOS entry was found.
func Resolve(login string, am *AuthorMap, mailDomain string) UserInfo {
	if am != nil {
		if e, ok := am.entries[login]; ok {
			return UserInfo{Login: login, Identity: identity(e.name, e.email), Zone: e.zone}
		}
	}
	if u, err := user.Lookup(login); err == nil && u.Name != "" {
		name := strings.SplitN(u.Name, ",", 2)[0]
		return UserInfo{Login: login, Identity: identity(name, mailAddress(login, mailDomain))}
	}
	if self, err := user.Current(); err == nil && self.Username == login {
		if fullname, email, ferr := fqme.WhoAmI(); ferr == nil {
			return UserInfo{Login: login, Identity: identity(fullname, email)}
		}
	}
	return UserInfo{Login: login, Identity: identity("", mailAddress(login, mailDomain))}
}

func identity(name, email string) string {
	return fmt.Sprintf("%s <%s>", name, email)
}

func mailAddress(login, mailDomain string) string {
	if mailDomain == "" {
		return login
	}
	return login + "@" + mailDomain
}
