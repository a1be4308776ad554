// Package seqweave processes high-throughput sequencing reads through a
// user-defined graph of matching, trimming, tagging, and filtering
// operators. A declarative read-structure description is compiled into a
// pattern program, reads are decomposed into named regions (adapters,
// barcodes, UMIs, inserts), and a fixed worker pool drives batches of
// records through the sealed operator graph.
//
// The major packages:
//
//   - pkg/seq: the record and region model
//   - pkg/search: exact and bounded edit-distance substring search
//   - pkg/pattern: the read-structure language and compiled matcher
//   - pkg/graph: the operator graph, its builder, and sealing
//   - pkg/pipeline: the batch executor and result stream
//   - pkg/fastq: FASTQ input and output, plain or gzip
//
// cmd/seqweave wraps the library in a CLI for the common
// match-trim-filter workflow.
package seqweave
