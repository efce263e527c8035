package relocation

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

var errTruncatedClass = errors.New("truncated class file")

// Constant pool tags and the size of their payload after the tag byte.
// Utf8 entries are variable length and handled separately.
var constantSizes = map[byte]int{
	3:  4, // Integer
	4:  4, // Float
	5:  8, // Long
	6:  8, // Double
	7:  2, // Class
	8:  2, // String
	9:  4, // Fieldref
	10: 4, // Methodref
	11: 4, // InterfaceMethodref
	12: 4, // NameAndType
	15: 3, // MethodHandle
	16: 2, // MethodType
	17: 4, // Dynamic
	18: 4, // InvokeDynamic
	19: 2, // Module
	20: 2, // Package
}

const tagUtf8 = 1

// relocateClass rewrites every Utf8 constant of a class file. Class names,
// descriptors and signatures all live in Utf8 constants, so rewriting them
// relocates every symbolic reference without touching the bytecode.
func relocateClass(rules []Rule, data []byte) ([]byte, error) {
	if len(data) < 10 || !bytes.Equal(data[:4], classMagic) {
		return nil, errors.New("not a class file")
	}
	count := int(binary.BigEndian.Uint16(data[8:10]))

	var out bytes.Buffer
	out.Grow(len(data))
	out.Write(data[:10])

	pos := 10
	for i := 1; i < count; i++ {
		if pos >= len(data) {
			return nil, errTruncatedClass
		}
		tag := data[pos]
		if tag == tagUtf8 {
			if pos+3 > len(data) {
				return nil, errTruncatedClass
			}
			n := int(binary.BigEndian.Uint16(data[pos+1 : pos+3]))
			end := pos + 3 + n
			if end > len(data) {
				return nil, errTruncatedClass
			}
			s := relocateConstant(rules, string(data[pos+3:end]))
			if len(s) > 0xFFFF {
				return nil, fmt.Errorf("constant %d too long after relocation", i)
			}
			out.WriteByte(tagUtf8)
			_ = binary.Write(&out, binary.BigEndian, uint16(len(s)))
			out.WriteString(s)
			pos = end
			continue
		}
		size, ok := constantSizes[tag]
		if !ok {
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
		end := pos + 1 + size
		if end > len(data) {
			return nil, errTruncatedClass
		}
		out.Write(data[pos:end])
		pos = end
		// Long and Double occupy two slots.
		if tag == 5 || tag == 6 {
			i++
		}
	}
	out.Write(data[pos:])
	return out.Bytes(), nil
}

// relocateConstant rewrites slash and dotted names inside a constant. Each
// name is relocated by the first rule that applies to it and is not
// revisited, so one rule's output is never fed to a later rule.
func relocateConstant(rules []Rule, s string) string {
	var b strings.Builder
	changed := false
	for i := 0; i < len(s); {
		// A name starts after a non-name byte, or after the L of a
		// descriptor (com/foo must not match xcom/foo).
		if i == 0 || !isNameChar(s[i-1]) || s[i-1] == 'L' {
			if n, rel, ok := relocateName(rules, s[i:]); ok {
				if !changed {
					b.WriteString(s[:i])
					changed = true
				}
				b.WriteString(rel)
				i += n
				continue
			}
		}
		if changed {
			b.WriteByte(s[i])
		}
		i++
	}
	if !changed {
		return s
	}
	return b.String()
}

// relocateName matches the name at the start of s against rules in order.
// It returns the length of the consumed name and its replacement.
func relocateName(rules []Rule, s string) (int, string, bool) {
	for _, r := range rules {
		if r.Original == "" {
			continue
		}
		for _, sep := range []byte{'/', '.'} {
			prefix := r.Original
			if sep == '/' {
				prefix = strings.ReplaceAll(r.Original, ".", "/")
			}
			if !strings.HasPrefix(s, prefix) {
				continue
			}
			end := len(prefix)
			for end < len(s) && (isNameChar(s[end]) || s[end] == sep) {
				end++
			}
			name := s[:end]
			dotted := name
			if sep == '/' {
				dotted = strings.ReplaceAll(name, "/", ".")
			}
			if !r.Applies(dotted) {
				continue
			}
			rel := r.Relocated + strings.TrimPrefix(dotted, r.Original)
			if sep == '/' {
				rel = strings.ReplaceAll(rel, ".", "/")
			}
			return end, rel, true
		}
	}
	return 0, "", false
}

func isNameChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
