package sqlite

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Config holds the SQLite snapshot store configuration.
type Config struct {
	// Path is the database file. Defaults to {DataDir}/catalog.db.
	Path string `yaml:"path"`

	// JournalMode is one of wal, delete, truncate or memory. Default: wal.
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long a statement waits on a locked database.
	// Default: 5s.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

var journalModes = []string{"wal", "delete", "truncate", "memory"}

func (c *Config) defaults() {
	c.JournalMode = strings.ToLower(c.JournalMode)
	if c.JournalMode == "" {
		c.JournalMode = "wal"
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if !slices.Contains(journalModes, c.JournalMode) {
		return fmt.Errorf("sqlite: journal_mode %q is not one of %s", c.JournalMode, strings.Join(journalModes, ", "))
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %s", c.BusyTimeout)
	}
	return nil
}

// dsn returns the driver data source name. Pragmas ride on the DSN so the
// driver applies them to every new connection.
func (c *Config) dsn() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode("+c.JournalMode+")")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + c.Path + "?" + q.Encode()
}
