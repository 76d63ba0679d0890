// Package ring implements a fixed-capacity circular byte buffer shared
// between a single producer and any number of consumers.
//
// Enqueue blocks while the buffer lacks space and Dequeue blocks while it
// lacks data, so the buffer provides backpressure in both directions.
// Close is a one-way transition: buffered bytes stay readable, and once
// they are drained every blocked or future Dequeue returns ErrClosed.
package ring
