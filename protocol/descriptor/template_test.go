package descriptor

import (
	"strings"
	"testing"
)

const sampleTemplate = `
// comment line
message Ping High 1 NotTrusted Unencoded
{
	PingCheck Single
	{
		PingID u8
		OldestUnacked u32
	}
}

message Ack Fixed 2 NotTrusted Unencoded Deprecated
{
	Packets Variable
	{
		ID u32
	}
}

message Neighbors Low 9 Trusted Zerocoded
{
	Data Multiple 4
	{
		Handle u64
	}
}
`

func TestParseTemplateBasic(t *testing.T) {
	table, err := ParseTemplate(strings.NewReader(sampleTemplate))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(table.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(table.Messages))
	}

	byName := table.ByName()
	ping := byName["Ping"]
	if ping == nil {
		t.Fatal("Ping not found")
	}
	if ping.Frequency != High || ping.ID != 1 || ping.Trusted {
		t.Fatalf("unexpected Ping header: %+v", ping)
	}
	if len(ping.Blocks) != 1 || len(ping.Blocks[0].Fields) != 2 {
		t.Fatalf("unexpected Ping blocks: %+v", ping.Blocks)
	}

	ack := byName["Ack"]
	if ack == nil || !ack.Deprecated {
		t.Fatalf("expected Ack to be Deprecated: %+v", ack)
	}
	if ack.Blocks[0].Multiplicity.Kind != Variable {
		t.Fatalf("expected Ack.Packets to be Variable")
	}

	neighbors := byName["Neighbors"]
	if neighbors == nil {
		t.Fatal("Neighbors not found")
	}
	if neighbors.Blocks[0].Multiplicity.Kind != Multiple || neighbors.Blocks[0].Multiplicity.Count != 4 {
		t.Fatalf("unexpected Neighbors multiplicity: %+v", neighbors.Blocks[0].Multiplicity)
	}
}

func TestParseTemplateUnusedFlag(t *testing.T) {
	src := `
message Old Low 1 NotTrusted Unencoded Unused
{
	Data Single
	{
		X u8
	}
}
`
	table, err := ParseTemplate(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Kept()) != 0 {
		t.Fatalf("expected Unused message to be excluded from Kept()")
	}
}
