package history

import (
	"metaview/internal/classify"
	"metaview/internal/extract"
	"metaview/internal/metadata"
	"metaview/internal/session"
)

// FromResult summarizes an extraction outcome for recording. Bucket counts
// are only computed for successful results.
func FromResult(requestID string, src metadata.Source, res extract.Result, c *classify.Table) Entry {
	return summarize(requestID, src.Name, int64(len(src.Data)), res, c)
}

// FromSnapshot summarizes a committed session snapshot.
func FromSnapshot(snap session.Snapshot, c *classify.Table) Entry {
	entry := summarize(snap.RequestID, snap.Source, snap.SourceSize, snap.Result, c)
	entry.CreatedAt = snap.CompletedAt
	return entry
}

func summarize(requestID, name string, size int64, res extract.Result, c *classify.Table) Entry {
	entry := Entry{
		RequestID:  requestID,
		SourceName: name,
		SourceSize: size,
		Status:     StatusOK,
	}
	if !res.OK() {
		entry.Status = StatusFailed
		entry.ErrorMessage = res.Err.Error()
		return entry
	}
	entry.FieldCount = len(res.Metadata)
	if c != nil {
		entry.BucketCounts = c.Classify(res.Metadata).Counts()
	}
	return entry
}
