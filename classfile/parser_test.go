/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalClass assembles the bytes of a minimal, valid class file
// with no fields, no methods, and a single UTF8 constant naming the
// class itself, for exercising the top-level parser shape.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	w(uint32(magic))
	w(uint16(0)) // minor
	w(uint16(61)) // major (Java 17)

	// constant pool: 2 entries -> count = 3
	// #1 Utf8 "Main"
	// #2 Class -> #1
	// #3 Utf8 "java/lang/Object" would be needed for a real super, but
	//    SuperClass=0 means java/lang/Object implicitly here.
	w(uint16(3)) // constant_pool_count = count+1
	w(uint8(TagUtf8))
	w(uint16(len("Main")))
	buf.WriteString("Main")
	w(uint8(TagClass))
	w(uint16(1))

	w(uint16(AccPublic | AccSuper)) // access_flags
	w(uint16(2))                    // this_class -> #2
	w(uint16(0))                    // super_class
	w(uint16(0))                    // interfaces_count
	w(uint16(0))                    // fields_count
	w(uint16(0))                    // methods_count
	w(uint16(0))                    // attributes_count
	return buf.Bytes()
}

func TestParseMinimalClass(t *testing.T) {
	data := buildMinimalClass(t)
	cf, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if cf.ThisClassName() != "Main" {
		t.Errorf("ThisClassName() = %q, want Main", cf.ThisClassName())
	}
	if cf.SuperClass != 0 {
		t.Errorf("SuperClass = %d, want 0", cf.SuperClass)
	}
	if len(cf.Methods) != 0 || len(cf.Fields) != 0 {
		t.Errorf("expected no fields/methods, got %d/%d", len(cf.Fields), len(cf.Methods))
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := buildMinimalClass(t)
	data[0] = 0x00
	if _, err := ParseBytes(data); err == nil {
		t.Error("expected error for bad magic number")
	}
}

func TestParseLongDoubleConstantsConsumeTwoSlots(t *testing.T) {
	var buf bytes.Buffer
	w := func(v interface{}) { _ = binary.Write(&buf, binary.BigEndian, v) }
	w(uint32(magic))
	w(uint16(0))
	w(uint16(61))
	// 2 real entries (Long, Utf8) => long occupies slots 1-2, utf8 at 3
	// count = 4
	w(uint16(4))
	w(uint8(TagLong))
	w(int64(123456789))
	w(uint8(TagUtf8))
	w(uint16(len("x")))
	buf.WriteString("x")

	w(uint16(AccPublic))
	w(uint16(3)) // this_class points at a Utf8, which is fine for this structural test
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))

	cf, err := ParseBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	long, ok := cf.ConstantPool[1].(*ConstantLong)
	if !ok || long.Value != 123456789 {
		t.Fatalf("ConstantPool[1] = %#v", cf.ConstantPool[1])
	}
	utf8, ok := cf.ConstantPool[3].(*ConstantUtf8)
	if !ok || utf8.Value != "x" {
		t.Fatalf("ConstantPool[3] = %#v, want Utf8(x) at slot 3 after the long's phantom slot 2", cf.ConstantPool[3])
	}
}
