// Package veriscope is the indexing and completion backend of a
// SystemVerilog language server. It keeps the set of files an editor works
// on, compiles them together with whatever they depend on, and answers
// completion requests from an index of the result.
//
// # Pipeline
//
// Every mutation (open, change, close, configure) re-indexes the project:
//
//  1. Compile: parse every known file, then repeatedly look up referenced
//     but undeclared modules, interfaces, programs, packages and classes
//     in the library directories until no new file can be found. The
//     trees are then elaborated into one design.
//
//  2. Translate: the compilation's diagnostics are mapped to 0-based,
//     per-file positions with an editor severity.
//
//  3. Index: one traversal of the design records every declared value per
//     file, the member layout of every struct, union and class, and the
//     files that declare packages.
//
//  4. Publish: the index and diagnostics are swapped in atomically.
//     Completion requests that are already running keep the snapshot they
//     started with.
//
// # Usage
//
//	e := veriscope.New()
//	e.SetRoot("path/to/project")
//
//	ctx := context.Background()
//	report, err := e.Open(ctx, "path/to/project/rtl/top.sv", text)
//	if err != nil { ... }
//	for file, diags := range report.Diagnostics { ... }
//
//	res := e.Complete("path/to/project/rtl/top.sv", 12, 8)
//	for _, item := range res.Items { ... }
//
// # Configuration
//
// Include and library directories are discovered by walking upward from
// the first file: a .sver_config file wins, otherwise the repository root
// (or the workspace root) is probed for include/, rtl/ and src/. Explicit
// [Settings] passed to [Engine.Configure] replace what was discovered.
//
// # Completion
//
// [Engine.Complete] reduces the line to the token before the cursor and
// classifies it: a leading '$' lists system functions, a dotted member
// access walks the record types of the index, and anything else gets
// keywords plus the symbols of the file and of every package.
//
// # Watching and export
//
// [Engine.Watch] re-indexes when files under the project's directories
// change on disk. [Engine.Export] writes the published index to a SQLite
// database that the veriscope command can query without recompiling.
package veriscope
