// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds Tessera's single CBOR configuration.
//
// Tessera's canonical, hashed formats (key strings, path strings, the
// manifest array pair) are text and are defined by their own packages.
// CBOR is used for everything that is stored but never hashed: object
// info records, portal records, and compact manifest copies. Encoding
// uses Core Deterministic Encoding (RFC 8949 §4.2), so the same record
// always produces the same bytes and on-disk files diff cleanly.
//
// Types implementing encoding.TextMarshaler (key.Key, path.Path)
// encode as CBOR text strings holding their canonical string form, so
// a record dumped with Diagnose shows readable keys.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
package codec
