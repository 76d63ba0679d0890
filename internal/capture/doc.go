// Package capture reads and writes frame capture files and streams their
// contents into a ring buffer.
//
// Captures are a bare concatenation of fixed-size frames, optionally
// gzip-compressed. The reader sniffs the gzip magic bytes, so callers
// never need to say which flavor they have.
package capture
