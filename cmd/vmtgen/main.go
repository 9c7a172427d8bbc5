// Command vmtgen reads a message-template manifest and emits the Go
// scaffold for protocol/messages. It mirrors vdl's "vdl generate" entry
// point: parse, then hand the table to the codegen package.
package main

import (
	"flag"
	"log"
	"os"

	"dev.mvwire.core/protocol/descriptor"
	"dev.mvwire.core/protocol/gen"
)

func main() {
	in := flag.String("in", "protocol/messages/template.txt", "path to the message template manifest")
	out := flag.String("out", "", "output path; defaults to stdout")
	pkg := flag.String("pkg", "messages", "generated package name")
	flag.Parse()

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("vmtgen: %v", err)
	}
	defer f.Close()

	table, err := descriptor.ParseTemplate(f)
	if err != nil {
		log.Fatalf("vmtgen: parse template: %v", err)
	}
	if err := table.Validate(); err != nil {
		log.Fatalf("vmtgen: invalid template: %v", err)
	}

	src, err := gen.GenerateFile(*pkg, table)
	if err != nil {
		log.Fatalf("vmtgen: generate: %v", err)
	}

	if *out == "" {
		os.Stdout.Write(src)
		return
	}
	if err := os.WriteFile(*out, src, 0o644); err != nil {
		log.Fatalf("vmtgen: write %s: %v", *out, err)
	}
}
