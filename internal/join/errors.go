package join

import (
	"errors"
	"strings"
)

// Sentinel errors usable with errors.Is, grounded on the teacher's sentinel
// style (e.g. the achemdb server's "not found"/"already exists" errors).
var (
	// ErrEmitterUnbound is returned by Emit when the emitter has not yet
	// been bound to a site.
	ErrEmitterUnbound = errors.New("join: emitter is not bound to a site")
	// ErrSiteInactive is returned by Emit once the site has been closed.
	ErrSiteInactive = errors.New("join: site is inactive")
	// ErrStaticMisuse is returned when a static molecule is emitted from
	// outside the reaction body that consumed it.
	ErrStaticMisuse = errors.New("join: static molecule emitted outside its own reaction")
)

// SiteError collects the issues found while installing a reaction site
// (spec §6 "Site installation API"), modeled on the teacher's
// ValidationError aggregate (internal/achem/validation.go).
type SiteError struct {
	Issues []string
}

func (e *SiteError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "join: invalid site: unknown installation error"
	case 1:
		return e.Issues[0]
	default:
		return "join: site installation errors: " + strings.Join(e.Issues, "; ")
	}
}

func (e *SiteError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *SiteError) HasIssues() bool {
	return len(e.Issues) > 0
}
