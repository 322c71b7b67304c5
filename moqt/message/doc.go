// Package message implements the MoQ Transport wire codec.
//
// It covers the 2-bit-prefixed variable-length integers, every control
// message, the object-bearing stream headers and the compact per-object
// records carried on unidirectional streams. Field layouts differ between
// protocol drafts, so encoding and decoding go through a Codec bound to one
// negotiated Version.
package message
