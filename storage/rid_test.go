package storage

import (
	"testing"

	"github.com/koroeder/lstore/config"
)

func TestEncodeDecodeRIDRoundTrip(t *testing.T) {
	cases := []struct {
		rangeID, segment, offset int
	}{
		{0, config.SegmentBase, 0},
		{0, config.SegmentTail, 7},
		{3, config.SegmentBase, config.RecordsPerRange - 1},
		{12, config.SegmentTail, 512},
	}
	for _, c := range cases {
		rid := EncodeRID(c.rangeID, c.segment, c.offset)
		gotRange, gotSeg, gotOffset := DecodeRID(rid)
		if gotRange != c.rangeID || gotSeg != c.segment || gotOffset != c.offset {
			t.Errorf("round trip %+v: got (%d,%d,%d)", c, gotRange, gotSeg, gotOffset)
		}
	}
}

func TestPageOffset(t *testing.T) {
	pageIndex, slotIndex := PageOffset(0)
	if pageIndex != 0 || slotIndex != 0 {
		t.Fatalf("offset 0: got (%d,%d)", pageIndex, slotIndex)
	}
	pageIndex, slotIndex = PageOffset(config.SlotsPerPage + 1)
	if pageIndex != 1 || slotIndex != 1 {
		t.Fatalf("offset SlotsPerPage+1: got (%d,%d)", pageIndex, slotIndex)
	}
}

func TestBaseAndTailSegmentsDoNotOverlapInRIDSpace(t *testing.T) {
	base := EncodeRID(0, config.SegmentBase, config.RecordsPerRange-1)
	tail := EncodeRID(0, config.SegmentTail, 0)
	if tail <= base {
		t.Fatalf("expected tail rid %d > base rid %d", tail, base)
	}
}
