package engine

import (
	"strings"
	"time"
)

const defaultArtifactExt = "tar.gz"

// safeName replaces characters that would split or escape a path segment.
func safeName(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "_")
	return r.Replace(name)
}

// artifactFilename builds the §4.6.2 filename: the result sorts
// chronologically as a plain string because the timestamp component is
// zero-padded and fixed-width.
func artifactFilename(name, kind string, at time.Time) string {
	return safeName(name) + "_" + at.Format("20060102_150405") + "_" + kind + "." + defaultArtifactExt
}
