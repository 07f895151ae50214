// filename.go maps file numbers to on-disk file names.
//
// The patterns are a compatibility contract with the rest of the engine:
// compaction outputs, recovery, and the table cache must agree on them.
package dbformat

import (
	"fmt"
	"strconv"
	"strings"
)

// FileType identifies the role of a database file.
type FileType int

const (
	// FileTypeLog is a write-ahead log file: <num:06>.log
	FileTypeLog FileType = iota
	// FileTypeDBLock is the database lock file: LOCK
	FileTypeDBLock
	// FileTypeTable is a sorted table file: <num:06>.ldb
	FileTypeTable
	// FileTypeManifest is a manifest file: MANIFEST-<num:06>
	FileTypeManifest
	// FileTypeCurrent is the CURRENT pointer file.
	FileTypeCurrent
	// FileTypeTemp is a temporary file: <num:06>.dbtmp
	FileTypeTemp
	// FileTypeInfoLog is the info log: LOG
	FileTypeInfoLog
	// FileTypeOldInfoLog is the rotated info log: LOG.old
	FileTypeOldInfoLog
)

// FileName returns the path for a file of the given type under dbname.
func FileName(dbname string, ft FileType, num uint64) string {
	switch ft {
	case FileTypeLog:
		return fmt.Sprintf("%s/%06d.log", dbname, num)
	case FileTypeDBLock:
		return dbname + "/LOCK"
	case FileTypeTable:
		return fmt.Sprintf("%s/%06d.ldb", dbname, num)
	case FileTypeManifest:
		return fmt.Sprintf("%s/MANIFEST-%06d", dbname, num)
	case FileTypeCurrent:
		return dbname + "/CURRENT"
	case FileTypeTemp:
		return fmt.Sprintf("%s/%06d.dbtmp", dbname, num)
	case FileTypeInfoLog:
		return dbname + "/LOG"
	case FileTypeOldInfoLog:
		return dbname + "/LOG.old"
	default:
		panic(fmt.Sprintf("dbformat: unknown file type %d", ft))
	}
}

// ParseFileName parses the basename of a database file.
// Returns the file number (zero for numberless files), the type, and
// whether the name matched any known pattern.
func ParseFileName(name string) (num uint64, ft FileType, ok bool) {
	switch name {
	case "CURRENT":
		return 0, FileTypeCurrent, true
	case "LOCK":
		return 0, FileTypeDBLock, true
	case "LOG":
		return 0, FileTypeInfoLog, true
	case "LOG.old":
		return 0, FileTypeOldInfoLog, true
	}
	if rest, found := strings.CutPrefix(name, "MANIFEST-"); found {
		n, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		return n, FileTypeManifest, true
	}
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(name[:dot], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	switch name[dot+1:] {
	case "log":
		return n, FileTypeLog, true
	case "ldb":
		return n, FileTypeTable, true
	case "dbtmp":
		return n, FileTypeTemp, true
	default:
		return 0, 0, false
	}
}
