package job

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// Type is the kind of work a job describes.
type Type string

const (
	Resolve   Type = "resolve"
	Fetch     Type = "fetch"
	Configure Type = "configure"
	Install   Type = "install"
)

// Job is an immutable descriptor of one unit of external work. Identity
// is derived from the type plus the payload fields that name the target;
// two jobs are equal iff those fields are equal. InCharge is observed by
// the scheduler only, marking that a worker holds the job.
type Job struct {
	Type Type

	// resolve payload
	Package   string
	Range     version.Range
	Reinstall bool

	// distribution payload
	Distfile string
	Source   distribution.Source
	URI      string
	Rev      string
	Ref      string
	Features []string

	// configure payload
	Meta      distribution.Meta
	Directory string
	Version   string
	Distvname string

	// install payload
	Distdata      *distribution.Distdata
	StaticBuilder bool
	Prebuilt      bool

	InCharge bool

	uid string
}

// UID returns the deterministic identity of the job.
func (j *Job) UID() string {
	if j.uid == "" {
		subject := j.Package
		if j.Type != Resolve {
			subject = j.Distfile
		}
		h := sha1.Sum([]byte(strings.Join([]string{
			string(j.Type), subject, string(j.Source), j.URI, j.Ref,
		}, "\x00")))
		j.uid = hex.EncodeToString(h[:])
	}
	return j.uid
}

// Equal reports whether two jobs describe the same unit of work.
func (j *Job) Equal(o *Job) bool {
	if j == nil || o == nil {
		return j == o
	}
	if j.Type != o.Type || j.Source != o.Source || j.URI != o.URI || j.Ref != o.Ref {
		return false
	}
	if j.Type == Resolve {
		return j.Package == o.Package
	}
	return j.Distfile == o.Distfile
}

// Result is the structured outcome a worker returns for a job. It carries
// the identifying uid plus type-specific payloads; the scheduler fetches
// the original job by uid for context.
type Result struct {
	UID     string
	Type    Type
	OK      bool
	PID     int
	Elapsed time.Duration
	Message string

	// resolve extras
	Package  string
	Distfile string
	Source   distribution.Source
	URI      string
	Version  string
	Rev      string
	Provides []distribution.Provide

	// fetch extras
	Directory    string
	Meta         distribution.Meta
	Requirements map[distribution.Phase][]requirement.Entry
	Prebuilt     bool

	// configure extras
	Distdata      *distribution.Distdata
	StaticBuilder bool
}
