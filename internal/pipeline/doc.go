// Package pipeline runs a pool of workers against one shared ring
// buffer, classifying frames in parallel while committing records to a
// single sink in exactly the order frames were dequeued.
//
// The trick is the ledger: immediately after a worker dequeues a frame it
// reserves a slot, so the expensive classification step runs with no lock
// held and only the tiny commit step is serialized.
package pipeline
