// Package entity defines the biographical-memory data model: the four entity
// kinds (Session, Event, Learning, Decision), the five relationship kinds
// linking them, and their document codecs.
//
// Key design constraints:
//   - Timestamps are UTC with microsecond precision (chrono.Normalize)
//   - Free text and set members are NFC-normalized at construction
//   - Confidence is clamped into [0, 1], never rejected
//   - Optional fields are omitted from documents when absent, never null
//   - References are encoded as docstore.Ref, never bare strings
package entity
