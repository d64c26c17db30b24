// Package objstore implements a block device on top of an object store.
//
// Each block is one object named "<dev>/<blockno>" under the store's root
// prefix. A block that was never written has no object and reads as zeros.
// Objects carry a one-byte codec header followed by the (possibly
// compressed) block, so a device may change codec without rewriting data.
//
// Remote transfers are bounded by a semaphore and encoded objects are kept
// in a freecache read cache, so re-reading an evicted block does not always
// reach the network.
package objstore
