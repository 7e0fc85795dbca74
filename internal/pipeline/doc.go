// Package pipeline runs the sniff stages for a page in sequence.
//
// A page goes through loading (fetch or snapshot), detection, optional
// dimension probing, size resolution with sorting, and optional thumbnail
// capture. Each stage is a Step that receives the shared Job and records
// its results on the job's report.
//
// BatchProcessor sniffs several pages concurrently with a bounded number of
// pipelines in flight, using errgroup.
package pipeline
