/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package thread

import (
	"testing"

	"jacobin/vm2/frames"
)

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New("main")
	b := New("main")
	if a.ID == b.ID {
		t.Error("expected distinct thread IDs")
	}
}

func TestPushPopFrame(t *testing.T) {
	th := New("main")
	jf := frames.NewJavaFrame(1, 1, nil, 0, 0, nil)
	th.PushFrame(jf)
	if th.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", th.Depth())
	}
	if th.CurrentFrame() != frames.Frame(jf) {
		t.Error("CurrentFrame should be the just-pushed frame")
	}
	popped := th.PopFrame()
	if popped != frames.Frame(jf) {
		t.Error("PopFrame should return the pushed frame")
	}
	if th.Depth() != 0 {
		t.Errorf("Depth after pop = %d, want 0", th.Depth())
	}
}

func TestPopFrameOnEmptyStackReturnsNil(t *testing.T) {
	th := New("main")
	if th.PopFrame() != nil {
		t.Error("PopFrame on an empty stack should return nil")
	}
}

func TestFramesSnapshotIsIndependent(t *testing.T) {
	th := New("main")
	th.PushFrame(frames.NewJavaFrame(1, 1, nil, 0, 0, nil))
	snap := th.Frames()
	th.PushFrame(frames.NewJavaFrame(2, 1, nil, 0, 0, nil))
	if len(snap) != 1 {
		t.Errorf("snapshot len = %d, want 1 (should not see later pushes)", len(snap))
	}
	if th.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", th.Depth())
	}
}
