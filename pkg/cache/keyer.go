package cache

import (
	"strconv"
	"time"
)

// TTLArtifact is how long rendered artifacts are kept.
const TTLArtifact = 7 * 24 * time.Hour

// Keyer builds cache keys.
type Keyer interface {
	// PayloadKey names the raw payload of one cluster downloaded from an
	// endpoint. Compressed and plain payloads never share a key.
	PayloadKey(endpoint string, cluster int64, compressed bool) string

	// ArtifactKey names one rendered export of a settled neighborhood.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds every setting that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Format     string
	Root       int64
	Steps      int
	LayoutHash string
	StyleHash  string
	Detailed   bool
}

// DefaultKeyer produces "payload:<hash>" and "artifact:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PayloadKey implements [Keyer].
func (DefaultKeyer) PayloadKey(endpoint string, cluster int64, compressed bool) string {
	return digestKey("payload", endpoint, strconv.FormatInt(cluster, 10), compressed)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return digestKey("artifact", graphHash, opts)
}
