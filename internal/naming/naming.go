// Package naming computes artifact keys and filenames for backup objects.
// The key format is shared with every deployment that reads the same
// bucket, so it must stay bit-exact: changing it orphans existing archives.
package naming

import (
	"strings"
	"time"
)

// TimestampLayout formats timestamps for artifact keys. Colons are
// replaced with hyphens so the timestamp is safe in object keys and
// filenames on every platform.
const TimestampLayout = "2006-01-02T15-04-05"

// Suffix is the file extension for all dump artifacts.
const Suffix = ".sql.gz"

// Timestamp renders t in the key-safe layout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ArtifactKey builds the remote object key for a dump of database taken
// at the given timestamp: "{env}.{db}/{db}.{ts}.sql.gz".
func ArtifactKey(environment, database, timestamp string) string {
	return environment + "." + database + "/" + database + "." + timestamp + Suffix
}

// LocalFilename strips the directory portion of a remote key, yielding
// "{db}.{ts}.sql.gz". Keys without a "/" are returned unchanged.
func LocalFilename(remoteKey string) string {
	if i := strings.Index(remoteKey, "/"); i >= 0 {
		return remoteKey[i+1:]
	}
	return remoteKey
}

// DatabaseFromKey returns the database name a remote key belongs to:
// the filename segment before the first ".".
func DatabaseFromKey(remoteKey string) string {
	name := LocalFilename(remoteKey)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// StagingNameFromFilename derives the clone target database name from a
// local dump filename: the segment before the first ".", with a
// "_production" suffix rewritten to "_staging". Names without the
// suffix pass through unchanged.
func StagingNameFromFilename(filename string) string {
	name := filename
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if strings.HasSuffix(name, "_production") {
		name = strings.TrimSuffix(name, "_production") + "_staging"
	}
	return name
}
