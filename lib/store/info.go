// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"net/http"
	"time"

	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/session"
)

// FileTypeManifest is the file type tag of stored manifests.
const FileTypeManifest = "manifest"

// ObjectInfo is the metadata record kept beside each stored object.
// Inline objects have no record on disk; their info is synthesized
// from the key.
type ObjectInfo struct {
	Key         key.Key     `cbor:"key"`
	MimeType    string      `cbor:"mime_type"`
	FileTypeTag string      `cbor:"file_type"`
	CreatedAt   time.Time   `cbor:"created_at"`
	Size        int64       `cbor:"size"`
	StoredSize  int64       `cbor:"stored_size"`
	Compression Compression `cbor:"compression"`
	Encrypted   bool        `cbor:"encrypted,omitempty"`
}

// SessionInfo converts to the storage session's metadata shape.
func (info ObjectInfo) SessionInfo() session.Info {
	return session.Info{
		MimeType:    info.MimeType,
		FileTypeTag: info.FileTypeTag,
		CreatedAt:   info.CreatedAt,
		Size:        info.Size,
	}
}

// FileTypeFor returns the default file type tag for content stored
// under k: "manifest" for containers, otherwise the key class name.
func FileTypeFor(k key.Key) string {
	if k.IsContainer() {
		return FileTypeManifest
	}
	return k.Class().String()
}

// detectMimeType sniffs content, treating container keys as JSON
// manifests.
func detectMimeType(k key.Key, content []byte) string {
	if k.IsContainer() {
		return "application/json"
	}
	return http.DetectContentType(content)
}

// inlineInfo synthesizes the metadata of an inline object.
func inlineInfo(k key.Key) ObjectInfo {
	payload := k.Payload()
	return ObjectInfo{
		Key:         k,
		MimeType:    detectMimeType(k, payload),
		FileTypeTag: FileTypeFor(k),
		Size:        int64(len(payload)),
		Compression: CompressionNone,
	}
}
