// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tlv implements the BER-TLV encoding used by ISO 7816-4 command
// data fields and card-verifiable certificates. Tags are kept in their raw
// on-wire form, including multi-byte tags such as 0x7F21 or 0x5F37.
package tlv

import (
	"fmt"

	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// Tag is a BER-TLV tag in its on-wire byte order, e.g. 0x7F4E. Tags up to
// three bytes are supported, which covers the ISO 7816 interindustry range.
type Tag uint32

// Tags interpreted by the terminal authentication layer.
const (
	TagOID               Tag = 0x06
	TagDiscretionaryData Tag = 0x53
	TagAuxiliaryData     Tag = 0x67
	TagAuxiliaryDatum    Tag = 0x73
	TagCVCertificate     Tag = 0x7F21
	TagCertificateBody   Tag = 0x7F4E
	TagSignature         Tag = 0x5F37
)

func (t Tag) String() string {
	return fmt.Sprintf("0x%02X", uint32(t))
}

// Constructed reports whether the tag has the constructed encoding bit set
// in its leading byte.
func (t Tag) Constructed() bool {
	return t.leadingByte()&0x20 != 0
}

func (t Tag) leadingByte() byte {
	switch {
	case t > 0xFFFF:
		return byte(t >> 16)
	case t > 0xFF:
		return byte(t >> 8)
	default:
		return byte(t)
	}
}

func (t Tag) encode() []byte {
	switch {
	case t > 0xFFFF:
		return []byte{byte(t >> 16), byte(t >> 8), byte(t)}
	case t > 0xFF:
		return []byte{byte(t >> 8), byte(t)}
	default:
		return []byte{byte(t)}
	}
}

// Object is a single BER-TLV data object. A constructed object carries its
// children; a primitive object carries its raw value. The encoding round
// trips: Encode(Parse(b)) == b for any definite-length BER input.
type Object struct {
	Tag      Tag
	Value    []byte
	Children []Object
}

// NewPrimitive creates a primitive data object.
func NewPrimitive(tag Tag, value []byte) Object {
	return Object{Tag: tag, Value: value}
}

// NewConstructed creates a constructed data object from the given children.
func NewConstructed(tag Tag, children ...Object) Object {
	return Object{Tag: tag, Children: children}
}

// Child returns the first direct child with the given tag, or false if no
// such child exists. Calling Child on a primitive object always returns
// false.
func (o Object) Child(tag Tag) (Object, bool) {
	for _, c := range o.Children {
		if c.Tag == tag {
			return c, true
		}
	}
	return Object{}, false
}

// ChildValue returns the value of the first direct child with the given tag,
// or nil if no such child exists.
func (o Object) ChildValue(tag Tag) []byte {
	c, ok := o.Child(tag)
	if !ok {
		return nil
	}
	return c.Value
}

// Encode returns the BER encoding of the object.
func (o Object) Encode() []byte {
	content := o.content()
	out := o.Tag.encode()
	out = append(out, encodeLength(len(content))...)
	return append(out, content...)
}

func (o Object) content() []byte {
	if !o.Tag.Constructed() {
		return o.Value
	}
	var content []byte
	for _, c := range o.Children {
		content = append(content, c.Encode()...)
	}
	return content
}

// EncodeRaw wraps already-encoded content in a tag and length without
// interpreting it. Useful when exact byte sequences, e.g. signed certificate
// bodies, must be preserved verbatim.
func EncodeRaw(tag Tag, content []byte) []byte {
	out := tag.encode()
	out = append(out, encodeLength(len(content))...)
	return append(out, content...)
}

func encodeLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n <= 0xFF:
		return []byte{0x81, byte(n)}
	default:
		return []byte{0x82, byte(n >> 8), byte(n)}
	}
}

// Parse decodes a single data object from the start of raw and returns it
// together with the number of bytes consumed. Constructed objects are
// decoded recursively.
func Parse(raw []byte) (Object, int, error) {
	tag, n, err := parseTag(raw)
	if err != nil {
		return Object{}, 0, err
	}
	length, m, err := parseLength(raw[n:])
	if err != nil {
		return Object{}, 0, serrors.Wrap("parsing length", err, "tag", tag)
	}
	end := n + m + length
	if end > len(raw) {
		return Object{}, 0, serrors.New("value truncated",
			"tag", tag, "length", length, "available", len(raw)-n-m)
	}
	value := raw[n+m : end]
	if !tag.Constructed() {
		return Object{Tag: tag, Value: value}, end, nil
	}
	children, err := ParseAll(value)
	if err != nil {
		return Object{}, 0, serrors.Wrap("parsing children", err, "tag", tag)
	}
	return Object{Tag: tag, Children: children}, end, nil
}

// ParseAll decodes a concatenation of data objects, e.g. an APDU command
// data field.
func ParseAll(raw []byte) ([]Object, error) {
	var objects []Object
	for len(raw) > 0 {
		o, n, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		objects = append(objects, o)
		raw = raw[n:]
	}
	return objects, nil
}

// Find returns the first object with the given tag in the list, or false.
func Find(objects []Object, tag Tag) (Object, bool) {
	for _, o := range objects {
		if o.Tag == tag {
			return o, true
		}
	}
	return Object{}, false
}

func parseTag(raw []byte) (Tag, int, error) {
	if len(raw) == 0 {
		return 0, 0, serrors.New("empty input")
	}
	tag := Tag(raw[0])
	n := 1
	if raw[0]&0x1F == 0x1F {
		// multi-byte tag, subsequent bytes have the continuation bit set
		for {
			if n >= len(raw) {
				return 0, 0, serrors.New("tag truncated")
			}
			if n >= 3 {
				return 0, 0, serrors.New("tag too long")
			}
			tag = tag<<8 | Tag(raw[n])
			more := raw[n]&0x80 != 0
			n++
			if !more {
				break
			}
		}
	}
	return tag, n, nil
}

func parseLength(raw []byte) (int, int, error) {
	if len(raw) == 0 {
		return 0, 0, serrors.New("missing length")
	}
	b := raw[0]
	if b < 0x80 {
		return int(b), 1, nil
	}
	numBytes := int(b & 0x7F)
	if numBytes == 0 || numBytes > 2 {
		return 0, 0, serrors.New("unsupported length form", "leading", fmt.Sprintf("0x%02X", b))
	}
	if len(raw) < 1+numBytes {
		return 0, 0, serrors.New("length truncated")
	}
	length := 0
	for _, x := range raw[1 : 1+numBytes] {
		length = length<<8 | int(x)
	}
	return length, 1 + numBytes, nil
}
