// Package storage is the metadata store: bucket, file and API key records
// persisted in PostgreSQL. It is the single source of truth for existence
// and expiry and is queried fresh on every request; nothing here caches.
package storage
