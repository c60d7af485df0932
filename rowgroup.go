// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

// RowGroupMetaSize is the packed on-disk size of a RowGroupMeta entry.
const RowGroupMetaSize = 20

// RowGroupMeta is the on-disk location of one row group's payload.
type RowGroupMeta struct {
	Offset   uint64
	Size     uint64
	RowCount uint32
}

// RowGroup pairs a Batch with its on-disk location metadata. It is a pure
// container; the FormatWriter fills in Meta during emission.
type RowGroup struct {
	Batch *Batch
	Meta  RowGroupMeta
}

// NewRowGroup wraps batch with a default meta, whose RowCount is derived
// from the batch's row count (not its column count).
func NewRowGroup(batch *Batch) *RowGroup {
	return &RowGroup{
		Batch: batch,
		Meta:  RowGroupMeta{RowCount: uint32(batch.RowCount())},
	}
}

// NewRowGroupWithMeta wraps batch with an explicit meta, as used by the
// reader when reconstructing a row group from the footer index.
func NewRowGroupWithMeta(batch *Batch, meta RowGroupMeta) *RowGroup {
	return &RowGroup{Batch: batch, Meta: meta}
}
