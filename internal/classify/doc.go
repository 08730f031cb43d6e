// Package classify partitions a metadata map into named presentation buckets.
//
// Classification is driven by a Table: an ordered list of (bucket, predicate)
// rules plus a fallback. Each key goes to the first rule that matches, so the
// default table's overlapping EXIF and Camera Settings name sets resolve to
// EXIF Data. Classification is pure and total; it never fails.
package classify
