/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const magic = 0xCAFEBABE

// ParseBytes parses a complete .class file already read into memory.
func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads a .class file from r.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var gotMagic uint32
	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("invalid magic number: 0x%X", gotMagic)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, fmt.Errorf("reading constant_pool_count: %w", err)
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, fmt.Errorf("reading access_flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	var ifaceCount uint16
	if err := binary.Read(r, binary.BigEndian, &ifaceCount); err != nil {
		return nil, fmt.Errorf("reading interfaces_count: %w", err)
	}
	cf.Interfaces = make([]uint16, ifaceCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	fields, err := parseFields(r)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	cf.Fields = fields

	methods, err := parseMethods(r)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}
	cf.Methods = methods

	attrs, err := parseAttributes(r)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}
	cf.Attributes = attrs
	for _, a := range attrs {
		if cf.Utf8(a.NameIndex) == "SourceFile" && len(a.Data) >= 2 {
			idx := binary.BigEndian.Uint16(a.Data)
			cf.SourceFile = cf.Utf8(idx)
		}
	}

	return cf, nil
}

func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)
	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading tag at %d: %w", i, err)
		}
		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, err
			}
			buf := make([]byte, length)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			pool[i] = &ConstantUtf8{Value: string(buf)}
		case TagInteger:
			var v int32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			pool[i] = &ConstantInteger{Value: v}
		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, err
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}
		case TagLong:
			var v int64
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			pool[i] = &ConstantLong{Value: v}
			i++ // longs/doubles occupy two CP slots
		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, err
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++
		case TagClass:
			var idx uint16
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			pool[i] = &ConstantClass{NameIndex: idx}
		case TagString:
			var idx uint16
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			pool[i] = &ConstantString{StringIndex: idx}
		case TagFieldref:
			var ci, nt uint16
			if err := binary.Read(r, binary.BigEndian, &ci); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &nt); err != nil {
				return nil, err
			}
			pool[i] = &ConstantFieldref{ClassIndex: ci, NameAndTypeIndex: nt}
		case TagMethodref:
			var ci, nt uint16
			if err := binary.Read(r, binary.BigEndian, &ci); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &nt); err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodref{ClassIndex: ci, NameAndTypeIndex: nt}
		case TagInterfaceMethodref:
			var ci, nt uint16
			if err := binary.Read(r, binary.BigEndian, &ci); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &nt); err != nil {
				return nil, err
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: ci, NameAndTypeIndex: nt}
		case TagNameAndType:
			var n, d uint16
			if err := binary.Read(r, binary.BigEndian, &n); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &d); err != nil {
				return nil, err
			}
			pool[i] = &ConstantNameAndType{NameIndex: n, DescriptorIndex: d}
		case TagMethodHandle:
			var kind uint8
			var idx uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: idx}
		case TagMethodType:
			var idx uint16
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: idx}
		case TagDynamic:
			var bi, nt uint16
			if err := binary.Read(r, binary.BigEndian, &bi); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &nt); err != nil {
				return nil, err
			}
			pool[i] = &ConstantDynamic{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: nt}
		case TagInvokeDynamic:
			var bi, nt uint16
			if err := binary.Read(r, binary.BigEndian, &bi); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.BigEndian, &nt); err != nil {
				return nil, err
			}
			pool[i] = &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: nt}
		case TagModule, TagPackage:
			var idx uint16
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			pool[i] = &ConstantClass{NameIndex: idx}
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}
	return pool, nil
}

func parseAttributes(r io.Reader) ([]AttributeInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		var nameIdx uint16
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &nameIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		attrs[i] = AttributeInfo{NameIndex: nameIdx, Data: data}
	}
	return attrs, nil
}

func parseFields(r io.Reader) ([]FieldInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	fields := make([]FieldInfo, count)
	for i := range fields {
		if err := binary.Read(r, binary.BigEndian, &fields[i].AccessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &fields[i].NameIndex); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &fields[i].DescIndex); err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(r)
		if err != nil {
			return nil, err
		}
		fields[i].Attributes = attrs
	}
	return fields, nil
}

func parseMethods(r io.Reader) ([]MethodInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	methods := make([]MethodInfo, count)
	for i := range methods {
		if err := binary.Read(r, binary.BigEndian, &methods[i].AccessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &methods[i].NameIndex); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &methods[i].DescIndex); err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(r)
		if err != nil {
			return nil, err
		}
		methods[i].Attributes = attrs
		// The Code attribute is not decoded here: recognising it needs
		// its name looked up in the constant pool, so the method area's
		// loadAndLink finds the attribute named "Code" and decodes its
		// Data with ParseCodeAttribute.
	}
	return methods, nil
}

// ParseCodeAttribute decodes the raw bytes of a Code attribute. The
// method area calls this once it has identified, via the constant
// pool's Utf8 entries, which AttributeInfo is named "Code".
func ParseCodeAttribute(data []byte) (*CodeAttribute, error) {
	r := bytes.NewReader(data)
	ca := &CodeAttribute{}
	if err := binary.Read(r, binary.BigEndian, &ca.MaxStack); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &ca.MaxLocals); err != nil {
		return nil, err
	}
	var codeLen uint32
	if err := binary.Read(r, binary.BigEndian, &codeLen); err != nil {
		return nil, err
	}
	ca.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(r, ca.Code); err != nil {
		return nil, err
	}
	var excCount uint16
	if err := binary.Read(r, binary.BigEndian, &excCount); err != nil {
		return nil, err
	}
	ca.Exceptions = make([]ExceptionTableEntry, excCount)
	for i := range ca.Exceptions {
		if err := binary.Read(r, binary.BigEndian, &ca.Exceptions[i]); err != nil {
			return nil, err
		}
	}
	attrs, err := parseAttributes(r)
	if err != nil {
		return nil, err
	}
	// LineNumberTable sub-attribute is parsed opportunistically; its
	// name requires a CP lookup the caller performs, so the caller
	// may call ParseLineNumberTable itself on the raw bytes it
	// recognizes by name.
	_ = attrs
	return ca, nil
}

// ParseLineNumberTable decodes a LineNumberTable attribute's raw
// bytes.
func ParseLineNumberTable(data []byte) ([]LineNumberEntry, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, count)
	for i := range entries {
		if err := binary.Read(r, binary.BigEndian, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
