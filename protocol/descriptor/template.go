package descriptor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseTemplate parses the plain-text message-template manifest into a
// Table. The manifest is line-oriented:
//
//	message <Name> <Frequency> <ID> <Trusted|NotTrusted> <Zerocoded|Unencoded> [Deprecated] [Unused]
//	{
//		<BlockName> <Single|Multiple N|Variable>
//		{
//			<FieldName> <Type> [Count]
//		}
//	}
//
// Lines starting with "//" are comments. Unrecognized flags on a message
// header line and unrecognized lines outside any message are skipped; inside
// a message, a line that is not a valid block header or field is an error.
func ParseTemplate(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var t Table
	var cur *Message
	var curBlock *Block
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if line == "{" || line == "}" {
			if line == "}" {
				if curBlock != nil {
					cur.Blocks = append(cur.Blocks, *curBlock)
					curBlock = nil
				} else if cur != nil {
					t.Messages = append(t.Messages, *cur)
					cur = nil
				}
			}
			continue
		}
		fields := strings.Fields(line)
		switch {
		case fields[0] == "message":
			m, err := parseMessageHeader(fields, lineNo)
			if err != nil {
				return nil, err
			}
			cur = m
		case cur != nil && curBlock == nil:
			b, err := parseBlockHeader(fields, lineNo)
			if err != nil {
				return nil, err
			}
			curBlock = b
		case curBlock != nil:
			f, err := parseField(fields, lineNo)
			if err != nil {
				return nil, err
			}
			curBlock.Fields = append(curBlock.Fields, f)
		default:
			// unknown directive outside any message/block: ignored
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

func parseMessageHeader(fields []string, line int) (*Message, error) {
	if len(fields) < 5 {
		return nil, fmt.Errorf("descriptor: line %d: malformed message header", line)
	}
	freq, err := parseFrequency(fields[2])
	if err != nil {
		return nil, fmt.Errorf("descriptor: line %d: %w", line, err)
	}
	id, err := strconv.ParseUint(fields[3], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("descriptor: line %d: bad id %q", line, fields[3])
	}
	m := &Message{
		Name:      fields[1],
		Frequency: freq,
		ID:        uint16(id),
		Trusted:   strings.EqualFold(fields[4], "Trusted"),
		Encoded:   true,
	}
	for _, extra := range fields[5:] {
		switch strings.ToLower(extra) {
		case "unencoded":
			m.Encoded = false
		case "zerocoded":
			m.Encoded = true
		case "deprecated":
			m.Deprecated = true
		case "unused":
			m.Unused = true
		}
	}
	return m, nil
}

func parseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(s) {
	case "high":
		return High, nil
	case "medium":
		return Medium, nil
	case "low":
		return Low, nil
	case "fixed":
		return Fixed, nil
	default:
		return 0, fmt.Errorf("unknown frequency %q", s)
	}
}

func parseBlockHeader(fields []string, line int) (*Block, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("descriptor: line %d: malformed block header", line)
	}
	b := &Block{Name: fields[0]}
	switch strings.ToLower(fields[1]) {
	case "single":
		b.Multiplicity = Multiplicity{Kind: Single}
	case "variable":
		b.Multiplicity = Multiplicity{Kind: Variable}
	case "multiple":
		if len(fields) < 3 {
			return nil, fmt.Errorf("descriptor: line %d: Multiple block missing count", line)
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("descriptor: line %d: bad multiple count %q", line, fields[2])
		}
		b.Multiplicity = Multiplicity{Kind: Multiple, Count: n}
	default:
		return nil, fmt.Errorf("descriptor: line %d: unknown multiplicity %q", line, fields[1])
	}
	return b, nil
}

var fieldTypeNames = map[string]FieldType{
	"bool":       FBool,
	"u8":         FU8,
	"s8":         FS8,
	"u16":        FU16,
	"s16":        FS16,
	"u32":        FU32,
	"s32":        FS32,
	"u64":        FU64,
	"f32":        FF32,
	"f64":        FF64,
	"ipaddr":     FIPAddr,
	"ipport":     FIPPort,
	"uuid":       FUUID,
	"vector3":    FVector3,
	"vector3d":   FVector3d,
	"vector4":    FVector4,
	"quaternion": FQuaternion,
	"fixed":      FFixed,
	"variable":   FVariable,
}

func parseField(fields []string, line int) (Field, error) {
	if len(fields) < 2 {
		return Field{}, fmt.Errorf("descriptor: line %d: malformed field", line)
	}
	ft, ok := fieldTypeNames[strings.ToLower(fields[1])]
	if !ok {
		return Field{}, fmt.Errorf("descriptor: line %d: unknown field type %q", line, fields[1])
	}
	f := Field{Name: fields[0], Type: ft}
	if ft == FFixed || ft == FVariable {
		if len(fields) < 3 {
			return Field{}, fmt.Errorf("descriptor: line %d: %s field missing count", line, fields[1])
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return Field{}, fmt.Errorf("descriptor: line %d: bad count %q", line, fields[2])
		}
		f.Count = n
	}
	return f, nil
}
