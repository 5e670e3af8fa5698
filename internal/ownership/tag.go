// Package ownership remembers who last owned a case across a reopen.
//
// Two mechanisms coexist. The explicit ownership history relation (Store) is
// written inside the same store mutation as the reopen and is authoritative.
// The bracketed notes tag is the legacy side channel the CRUD screens still
// parse; adapters keep prepending it so old rows and new rows look alike.
package ownership

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tagLabel is the fixed marker label inside the bracketed notes tag.
const tagLabel = "prior-owner"

var tagRe = regexp.MustCompile(`\[` + tagLabel + `:([0-9a-fA-F-]{36})\]`)

// Tag renders the machine-readable marker for a previous owner.
func Tag(ownerID uuid.UUID) string {
	return fmt.Sprintf("[%s:%s]", tagLabel, ownerID)
}

// ReopenNote builds the block an adapter prepends to a case's notes on
// reopen: the marker, then a human-readable audit line carrying the reopen
// time and the updating source's subject.
func ReopenNote(ownerID uuid.UUID, now time.Time, sourceLabel, subject string) string {
	var b strings.Builder
	b.WriteString(Tag(ownerID))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Reopened %s via %s", now.Format("2006-01-02 15:04"), sourceLabel))
	if subject != "" {
		b.WriteString(": ")
		b.WriteString(subject)
	}
	b.WriteString("\n")
	return b.String()
}

// ParseTag scans notes for the first prior-owner marker and returns the
// identifier it carries. Reopens prepend, so the first marker is the most
// recent one.
func ParseTag(notes string) (uuid.UUID, bool) {
	m := tagRe.FindStringSubmatch(notes)
	if m == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
