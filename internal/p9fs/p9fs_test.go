// SPDX-License-Identifier: Unlicense OR MIT

package p9fs

import "testing"

func TestBatchBoundPrefersSmallerOfIOUnitAndMSize(t *testing.T) {
	if got := BatchBound(1024, 8192); got != 1024-23 {
		t.Fatalf("got %d, want %d", got, 1024-23)
	}
	if got := BatchBound(9000, 8192); got != 8192-24-23 {
		t.Fatalf("got %d, want %d", got, 8192-24-23)
	}
}

func TestBatchBoundFloorsAtMinimum(t *testing.T) {
	if got := BatchBound(0, 50); got != 64 {
		t.Fatalf("got %d, want floor of 64", got)
	}
}

func TestBatchBoundIgnoresUnknownIOUnit(t *testing.T) {
	got := BatchBound(0, 8192)
	want := 8192 - 24 - 23
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
