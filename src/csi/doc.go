/*
Package csi reads, writes, builds, and queries coordinate-sorted indexes (CSI).

A CSI file lets a reader of a coordinate-sorted, BGZF-compressed data file (BAM, VCF, BCF, and
friends) find the records overlapping a genomic interval without scanning the file.  The
coordinate space of each reference sequence is split by an 8-ary tree of bins.  Leaves cover
2^MinShift positions, and each level up covers eight times as much, up to a single root bin at
level Depth.  Every record is filed under the smallest bin that fully contains it, and each bin
lists the chunks (half-open ranges of [bgzf.VirtualPosition]) where its records live.

To answer a query, [Index.Query] enumerates every bin that intersects the interval
([RegionToBins]), gathers their chunks, drops chunks that end before the smallest linear offset
of the bins that start at or before the query, and merges what is left ([MergeChunks]).  The
caller then seeks to each chunk start and scans until the chunk end, filtering records as it
goes.

Indexes are read with [Reader] (or [Unmarshal]) and written with [Writer] (or [Marshal]).  Both
come in a blocking flavor and a context-aware flavor that checks for cancellation between every
field.  New indexes are built from a sorted record stream by [Indexer] or [BuildIndex].

An [Index] is never modified after it is built, so any number of goroutines may query it at
once.  Query results are copies.
*/
package csi
