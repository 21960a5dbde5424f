// Package report handles migration artifacts on disk and on standard
// streams: CSV tables with header-addressed rows, indented JSON documents,
// and the dash convention that routes artifacts through stdin and stdout.
package report
