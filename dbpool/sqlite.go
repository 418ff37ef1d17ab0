package dbpool

import "strings"

// sqliteDSN builds a modernc.org/sqlite DSN. WAL and a busy timeout are set
// through _pragma parameters; read-only mode uses a file: URI.
func sqliteDSN(opts OpenOptions) string {
	path := opts.Path
	if strings.HasPrefix(path, "file:") {
		path = strings.TrimPrefix(path, "file:")
	}
	params := []string{"_pragma=busy_timeout(5000)"}
	if opts.Mode == ModeReadOnly {
		params = append(params, "mode=ro")
	} else {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}
