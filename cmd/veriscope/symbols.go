package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/veriscope/internal/index"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [paths...]",
	Short: "Print symbol tables, record types and package files",
	RunE:  runSymbols,
}

func runSymbols(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	e, _, err := loadEngine(context.Background(), args)
	if err != nil {
		return outputError(out, errOut, "symbols", err)
	}
	return outputResult(out, CLIResult{Command: "symbols", Results: symbolTable(e.Snapshot())})
}

func symbolTable(snap *index.Snapshot) CLISymbolTable {
	st := CLISymbolTable{
		Symbols:  []CLISymbol{},
		Records:  []CLIRecord{},
		Packages: snap.Packages(),
	}
	if st.Packages == nil {
		st.Packages = []string{}
	}
	for _, file := range snap.Files() {
		for _, sym := range snap.FileSymbols(file) {
			st.Symbols = append(st.Symbols, symbolToCLI(sym))
		}
	}
	for _, name := range snap.Records() {
		rec, _ := snap.Record(name)
		st.Records = append(st.Records, recordToCLI(rec.Name, rec.Members))
	}
	return st
}

func symbolToCLI(sym index.Symbol) CLISymbol {
	return CLISymbol{
		File:        sym.File,
		Name:        sym.Name,
		Scope:       sym.Scope,
		Type:        sym.TypeName,
		Record:      sym.RecordName,
		ArrayLevels: sym.ArrayLevels,
		Kind:        sym.Kind.String(),
	}
}

func recordToCLI(name string, members []index.Member) CLIRecord {
	r := CLIRecord{Name: name, Members: make([]CLIMember, 0, len(members))}
	for _, m := range members {
		r.Members = append(r.Members, CLIMember{
			Name:        m.Name,
			Type:        m.TypeName,
			Record:      m.RecordName,
			ArrayLevels: m.ArrayLevels,
			Kind:        m.Kind.String(),
		})
	}
	return r
}
