// Package gen implements the C2 code generator: it walks a parsed
// descriptor.Table and emits a Go scaffold for protocol/messages: per kept
// message, a struct, its PacketType registration and its Type() method.
// Length/Encode/Decode/Split bodies are not generated. Grounded on
// vdl/codegen/golang's text/template plus go/format.Source pipeline.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
	"text/template"

	"dev.mvwire.core/protocol/descriptor"
)

// fieldGoType maps a descriptor field type to the Go type used in the
// generated struct.
func fieldGoType(f descriptor.Field) string {
	switch f.Type {
	case descriptor.FBool:
		return "bool"
	case descriptor.FU8:
		return "uint8"
	case descriptor.FS8:
		return "int8"
	case descriptor.FU16:
		return "uint16"
	case descriptor.FS16:
		return "int16"
	case descriptor.FU32:
		return "uint32"
	case descriptor.FS32:
		return "int32"
	case descriptor.FU64:
		return "uint64"
	case descriptor.FF32:
		return "float32"
	case descriptor.FF64:
		return "float64"
	case descriptor.FIPAddr:
		return "types.IPAddr"
	case descriptor.FIPPort:
		return "types.IPPort"
	case descriptor.FUUID:
		return "types.UUID"
	case descriptor.FVector3:
		return "types.Vector3"
	case descriptor.FVector3d:
		return "types.Vector3d"
	case descriptor.FVector4:
		return "types.Vector4"
	case descriptor.FQuaternion:
		return "types.Quaternion"
	case descriptor.FFixed:
		return fmt.Sprintf("[%d]byte", f.Count)
	case descriptor.FVariable:
		return "[]byte"
	default:
		return "/* unknown field type */ interface{}"
	}
}

// readExpr returns the Reader call (without error handling) for a scalar
// field type. Variable and Fixed fields are handled separately by the
// template since they need extra arguments.
func readExpr(f descriptor.Field) string {
	switch f.Type {
	case descriptor.FBool:
		return "r.Bool()"
	case descriptor.FU8:
		return "r.U8()"
	case descriptor.FS8:
		return "r.S8()"
	case descriptor.FU16:
		return "r.U16()"
	case descriptor.FS16:
		return "r.S16()"
	case descriptor.FU32:
		return "r.U32()"
	case descriptor.FS32:
		return "r.S32()"
	case descriptor.FU64:
		return "r.U64()"
	case descriptor.FF32:
		return "r.F32()"
	case descriptor.FF64:
		return "r.F64()"
	case descriptor.FUUID:
		return "r.UUID()"
	case descriptor.FVector3:
		return "r.Vector3()"
	case descriptor.FVector3d:
		return "r.Vector3d()"
	case descriptor.FVector4:
		return "r.Vector4()"
	case descriptor.FQuaternion:
		return "r.Quaternion()"
	default:
		return ""
	}
}

func writeStmt(f descriptor.Field) string {
	switch f.Type {
	case descriptor.FIPAddr:
		return fmt.Sprintf("w.U32(uint32(m.%s))", f.Name)
	case descriptor.FIPPort:
		return fmt.Sprintf("w.U16BE(uint16(m.%s))", f.Name)
	default:
		return fmt.Sprintf("w.%s(m.%s)", writerMethod(f.Type), f.Name)
	}
}

func writerMethod(t descriptor.FieldType) string {
	switch t {
	case descriptor.FBool:
		return "Bool"
	case descriptor.FU8:
		return "U8"
	case descriptor.FS8:
		return "S8"
	case descriptor.FU16:
		return "U16"
	case descriptor.FS16:
		return "S16"
	case descriptor.FU32:
		return "U32"
	case descriptor.FS32:
		return "S32"
	case descriptor.FU64:
		return "U64"
	case descriptor.FF32:
		return "F32"
	case descriptor.FF64:
		return "F64"
	case descriptor.FUUID:
		return "UUID"
	case descriptor.FVector3:
		return "Vector3"
	case descriptor.FVector3d:
		return "Vector3d"
	case descriptor.FVector4:
		return "Vector4"
	case descriptor.FQuaternion:
		return "Quaternion"
	default:
		return ""
	}
}

func fixedWireSize(f descriptor.Field) int {
	if f.Type == descriptor.FFixed {
		return f.Count
	}
	return f.Type.FixedWireSize()
}

// messageData is the per-message view fed to the struct/methods template.
type messageData struct {
	Name       string
	Freq       string
	ID         uint16
	HasVar     bool // message has a Variable-multiplicity block needing Split
	Fields     []fieldData
	FixedSize  int
	Deprecated bool
}

type fieldData struct {
	Name      string
	GoType    string
	ReadExpr  string
	WriteStmt string
	IsVar     bool
	VarWidth  int
	IsFixed   bool
	IsIP      bool
	IsIPPort  bool
}

const structTmpl = `
{{- if .Deprecated}}
// Deprecated: kept for wire compatibility; messages.Decode logs a warning
// when one arrives.
{{- end}}
var Type{{.Name}} = {{if .Deprecated}}deprecated(register{{else}}register{{end}}(descriptor.{{.Freq}}, {{.ID}}, "{{.Name}}", func() Message { return &{{.Name}}{} }){{if .Deprecated}}){{end}}

type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.GoType}}
{{- end}}
}

func (m *{{.Name}}) Type() PacketType { return Type{{.Name}} }
`

// GenerateStruct renders the struct header and PacketType registration for
// a single message descriptor, flagging m.Deprecated with a comment and a
// deprecated(...) wrapper around the registration so a maintainer filling
// in the body doesn't miss it. The struct lists the fields of the message's
// first block only; fields of later blocks are not emitted. No
// Length/Encode/Decode/Split bodies are emitted for any message; callers
// write them by hand, as protocol/messages/generated.go does.
func GenerateStruct(m *descriptor.Message) (string, error) {
	tmpl, err := template.New("struct").Parse(structTmpl)
	if err != nil {
		return "", err
	}
	data := messageData{
		Name:       m.Name,
		Freq:       m.Frequency.String(),
		ID:         m.ID,
		Deprecated: m.Deprecated,
	}
	if len(m.Blocks) > 0 {
		for _, f := range m.Blocks[0].Fields {
			data.Fields = append(data.Fields, fieldData{
				Name:   f.Name,
				GoType: fieldGoType(f),
			})
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GenerateFile renders every kept message's struct header into one Go
// source file body (package clause and imports included), formatted with
// go/format. Deprecated messages (m.Deprecated) are still emitted — they
// still encode/decode — but carry the flagging comment GenerateStruct adds.
// It does not synthesize Length/Encode/Decode/Split for any message — see
// GenerateStruct's doc comment — so its output is a
// scaffold a maintainer fills in, matching how a first-pass codegen tool is
// normally used during template changes.
func GenerateFile(pkg string, t *descriptor.Table) ([]byte, error) {
	names := make([]string, 0, len(t.Kept()))
	byName := map[string]*descriptor.Message{}
	for i := range t.Messages {
		m := &t.Messages[i]
		if m.Unused {
			continue
		}
		names = append(names, m.Name)
		byName[m.Name] = m
	}
	sort.Strings(names)

	var out strings.Builder
	fmt.Fprintf(&out, "// Code generated by cmd/vmtgen. DO NOT EDIT.\npackage %s\n\n", pkg)
	out.WriteString("import (\n\t\"dev.mvwire.core/internal/types\"\n\t\"dev.mvwire.core/protocol/descriptor\"\n)\n")
	for _, name := range names {
		s, err := GenerateStruct(byName[name])
		if err != nil {
			return nil, fmt.Errorf("gen: %s: %w", name, err)
		}
		out.WriteString(s)
	}
	return format.Source([]byte(out.String()))
}
