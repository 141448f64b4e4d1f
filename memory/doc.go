// Package memory implements the document store behind the add_document and
// search_documents capabilities. Documents are embedded on insert and ranked
// by cosine similarity on search.
//
// Two stores are provided: InMemoryStore keeps everything in process, and
// SQLiteStore persists documents and their vectors in a SQLite file through
// the pure-Go modernc.org/sqlite driver. Embedders are selected with the same
// "<provider>:<model>" identifiers used for chat backends.
package memory
