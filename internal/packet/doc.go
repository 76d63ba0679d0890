// Package packet defines the fixed-size frame that flows through the
// pipeline: a small routing header followed by an opaque payload, encoded
// little-endian into exactly Size bytes.
//
// Classification and hashing are pure functions with no shared state, so
// any number of workers may call them concurrently.
package packet
