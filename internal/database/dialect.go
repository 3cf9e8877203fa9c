package database

import (
	"fmt"
	"strconv"
)

type dialect struct {
	driver string
	// statements run once after connecting
	setup []string
	// statement run at the start of each insert transaction to silence
	// server notices for that transaction only
	quiet string
	// largest number of bind parameters accepted in one statement
	maxParams int
	bindvar   func(n int) string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		driver:    DriverPostgres,
		quiet:     "SET LOCAL client_min_messages TO error",
		maxParams: 65535,
		bindvar:   func(n int) string { return "$" + strconv.Itoa(n) },
	},
	DriverSQLite: {
		driver: DriverSQLite,
		setup: []string{
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		},
		maxParams: 32766,
		bindvar:   func(int) string { return "?" },
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return d, nil
}
