// Package serialization stores workspace blobs in the SafeTensors format.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
//
// The header maps each blob name to its dtype, shape and [start, end) byte
// range within the data section; the optional "__metadata__" entry holds
// string pairs. Blobs are written in alphabetical order and read back with
// strict validation of names and offsets, since the files may come from
// untrusted sources.
//
// Supported dtypes: F32, F16, I32, I64.
package serialization
