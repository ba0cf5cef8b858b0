package complete

import "github.com/jward/veriscope/internal/index"

// IEEE 1364-2005 keywords.
var verilogKeywords = []string{
	"always", "and", "assign", "automatic", "begin", "buf", "bufif0",
	"bufif1", "case", "casex", "casez", "cell", "cmos", "config",
	"deassign", "default", "defparam", "design", "disable", "edge", "else",
	"end", "endcase", "endconfig", "endfunction", "endgenerate",
	"endmodule", "endprimitive", "endspecify", "endtable", "endtask",
	"event", "for", "force", "forever", "fork", "function", "generate",
	"genvar", "highz0", "highz1", "if", "ifnone", "incdir", "include",
	"initial", "inout", "input", "instance", "integer", "join", "large",
	"liblist", "library", "localparam", "macromodule", "medium", "module",
	"nand", "negedge", "nmos", "nor", "noshowcancelled", "not", "notif0",
	"notif1", "or", "output", "parameter", "pmos", "posedge", "primitive",
	"pull0", "pull1", "pulldown", "pullup", "pulsestyle_ondetect",
	"pulsestyle_onevent", "rcmos", "real", "realtime", "reg", "release",
	"repeat", "rnmos", "rpmos", "rtran", "rtranif0", "rtranif1",
	"scalared", "showcancelled", "signed", "small", "specify", "specparam",
	"strong0", "strong1", "supply0", "supply1", "table", "task", "time",
	"tran", "tranif0", "tranif1", "tri", "tri0", "tri1", "triand",
	"trior", "trireg", "unsigned", "use", "uwire", "vectored", "wait",
	"wand", "weak0", "weak1", "while", "wire", "wor", "xnor", "xor",
}

// Keywords IEEE 1800-2017 adds to Verilog.
var systemVerilogKeywords = []string{
	"accept_on", "alias", "always_comb", "always_ff", "always_latch",
	"assert", "assume", "before", "bind", "bins", "binsof", "bit",
	"break", "byte", "chandle", "checker", "class", "clocking", "const",
	"constraint", "context", "continue", "cover", "covergroup",
	"coverpoint", "cross", "dist", "do", "endchecker", "endclass",
	"endclocking", "endgroup", "endinterface", "endpackage",
	"endprogram", "endproperty", "endsequence", "enum", "eventually",
	"expect", "export", "extends", "extern", "final", "first_match",
	"foreach", "forkjoin", "global", "iff", "ignore_bins",
	"illegal_bins", "implements", "implies", "import", "inside", "int",
	"interconnect", "interface", "intersect", "join_any", "join_none",
	"let", "local", "logic", "longint", "matches", "modport", "nettype",
	"new", "nexttime", "null", "package", "packed", "priority",
	"program", "property", "protected", "pure", "rand", "randc",
	"randcase", "randsequence", "ref", "reject_on", "restrict", "return",
	"s_always", "s_eventually", "s_nexttime", "s_until", "s_until_with",
	"sequence", "shortint", "shortreal", "soft", "solve", "static",
	"string", "strong", "struct", "super", "sync_accept_on",
	"sync_reject_on", "tagged", "this", "throughout", "timeprecision",
	"timeunit", "type", "typedef", "union", "unique", "unique0", "until",
	"until_with", "untyped", "var", "virtual", "void", "wait_order",
	"weak", "wildcard", "with", "within",
}

// IEEE 1800-2017 system tasks and functions.
var systemFunctions = []string{
	// Simulation control.
	"$finish", "$stop", "$exit",
	// Time.
	"$realtime", "$stime", "$time", "$printtimescale", "$timeformat",
	// Conversion.
	"$bitstoreal", "$realtobits", "$bitstoshortreal", "$shortrealtobits",
	"$itor", "$rtoi", "$signed", "$unsigned", "$cast",
	// Data query.
	"$bits", "$isunbounded", "$typename",
	// Array query.
	"$dimensions", "$increment", "$left", "$right", "$low", "$high",
	"$size", "$unpacked_dimensions",
	// Math.
	"$clog2", "$asin", "$ln", "$acos", "$log10", "$atan", "$exp",
	"$atan2", "$sqrt", "$hypot", "$pow", "$sinh", "$floor", "$cosh",
	"$ceil", "$tanh", "$sin", "$asinh", "$cos", "$acosh", "$tan",
	"$atanh",
	// Bit vector.
	"$countbits", "$countones", "$onehot", "$onehot0", "$isunknown",
	// Severity.
	"$fatal", "$error", "$warning", "$info",
	// Elaboration.
	"$static_assert",
	// Assertion control.
	"$asserton", "$assertoff", "$assertkill", "$assertcontrol",
	"$assertpasson", "$assertpassoff", "$assertfailon", "$assertfailoff",
	"$assertnonvacuouson", "$assertvacuousoff",
	// Sampled values.
	"$sampled", "$rose", "$fell", "$stable", "$changed", "$past",
	"$past_gclk", "$rose_gclk", "$fell_gclk", "$stable_gclk",
	"$changed_gclk", "$future_gclk", "$rising_gclk", "$falling_gclk",
	"$steady_gclk", "$changing_gclk",
	// Coverage.
	"$coverage_control", "$coverage_get_max", "$coverage_get",
	"$coverage_merge", "$coverage_save", "$get_coverage",
	"$set_coverage_db_name", "$load_coverage_db",
	// Probabilistic.
	"$random", "$urandom", "$urandom_range", "$dist_chi_square",
	"$dist_erlang", "$dist_exponential", "$dist_normal", "$dist_poisson",
	"$dist_t", "$dist_uniform",
	// Stochastic analysis.
	"$q_initialize", "$q_add", "$q_remove", "$q_full", "$q_exam",
	// PLA modeling.
	"$async$and$array", "$async$and$plane", "$async$nand$array",
	"$async$nand$plane", "$async$or$array", "$async$or$plane",
	"$async$nor$array", "$async$nor$plane", "$sync$and$array",
	"$sync$and$plane", "$sync$nand$array", "$sync$nand$plane",
	"$sync$or$array", "$sync$or$plane", "$sync$nor$array",
	"$sync$nor$plane",
	// Display.
	"$display", "$displayb", "$displayh", "$displayo", "$write",
	"$writeb", "$writeh", "$writeo", "$strobe", "$strobeb", "$strobeh",
	"$strobeo", "$monitor", "$monitorb", "$monitorh", "$monitoro",
	"$monitoroff", "$monitoron",
	// File I/O.
	"$fopen", "$fclose", "$fdisplay", "$fdisplayb", "$fdisplayh",
	"$fdisplayo", "$fwrite", "$fwriteb", "$fwriteh", "$fwriteo",
	"$fstrobe", "$fstrobeb", "$fstrobeh", "$fstrobeo", "$fmonitor",
	"$fmonitorb", "$fmonitorh", "$fmonitoro", "$swrite", "$swriteb",
	"$swriteh", "$swriteo", "$sformat", "$sformatf", "$fgetc", "$ungetc",
	"$fgets", "$fscanf", "$sscanf", "$fread", "$ftell", "$fseek",
	"$rewind", "$fflush", "$ferror", "$feof", "$readmemb", "$readmemh",
	"$writememb", "$writememh",
	// Command line.
	"$test$plusargs", "$value$plusargs",
	// Dump files.
	"$dumpfile", "$dumpvars", "$dumpoff", "$dumpon", "$dumpall",
	"$dumplimit", "$dumpflush", "$dumpports", "$dumpportsoff",
	"$dumpportson", "$dumpportsall", "$dumpportslimit",
	"$dumpportsflush",
}

// Keywords returns the keyword catalog, Verilog first.
func Keywords() []Item {
	items := make([]Item, 0, len(verilogKeywords)+len(systemVerilogKeywords))
	for _, list := range [][]string{verilogKeywords, systemVerilogKeywords} {
		for _, kw := range list {
			items = append(items, Item{Label: kw, Kind: index.KindKeyword})
		}
	}
	return items
}

// SystemFunctions returns the system function catalog. The insert text
// drops the leading '$', which the editor has already typed.
func SystemFunctions() []Item {
	items := make([]Item, 0, len(systemFunctions))
	for _, name := range systemFunctions {
		items = append(items, Item{Label: name, InsertText: name[1:], Kind: index.KindFunction})
	}
	return items
}
