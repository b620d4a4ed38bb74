package compiler

// Opcode identifies a VM instruction. Spec §4.2 groups opcodes into
// constants/locals, boxed arithmetic, a numeric fast-path, control flow,
// composite builders, access, calls, exceptions, pattern matching, and a
// misc/built-in-dispatch group; the const block below follows that grouping
// so the VM's dispatch switch can be read alongside it section by section.
type Opcode int

const (
	// Constants / locals / globals
	LOAD_CONST Opcode = iota
	LOAD_LOCAL
	STORE_LOCAL
	LOAD_GLOBAL
	STORE_GLOBAL
	LOAD_VAR
	POP

	// Boxed arithmetic (§4.1 semantics)
	ADD
	SUB
	MUL
	DIV
	MOD
	EQ
	NE
	LT
	LE
	GT
	GE
	AND
	OR
	XOR
	NOT
	NEG
	BIT_AND
	BIT_OR
	BIT_XOR
	SHL
	SHR

	// Numeric fast-path. Defined per spec §4.2/§9 ("should be preserved")
	// and implemented by the VM, but the current compiler pass never
	// emits them — see DESIGN.md's Open Question decision.
	LOAD_NUM
	ADD_NUM
	SUB_NUM
	MUL_NUM
	DIV_NUM
	LT_NUM
	LE_NUM
	GT_NUM
	GE_NUM
	VALUE_TO_NUM
	NUM_TO_VALUE

	// Control flow
	JUMP
	JUMP_IF_FALSE
	LOOP_START
	LOOP_END
	BREAK
	CONTINUE
	RETURN
	HALT

	// Composite builders
	CREATE_ARRAY
	CREATE_MAP
	CREATE_SET
	CREATE_RANGE
	CREATE_RANGE_STEP
	CREATE_OBJECT
	CREATE_LAMBDA
	CREATE_CLASS

	// Access
	ARRAY_GET
	ARRAY_SET
	PROPERTY_ACCESS
	PROPERTY_SET
	METHOD_CALL

	// Calls
	CALL_BUILTIN
	CALL_USER_FUNCTION
	CALL_FUNCTION_VALUE
	DEFINE_FUNCTION
	INSTANTIATE_CLASS

	// Exceptions
	TRY_START
	TRY_END
	CATCH
	THROW

	// Pattern match
	MATCH_PATTERN
	MATCH_END
	PATTERN_LITERAL
	PATTERN_WILDCARD
	PATTERN_TYPE

	// Loops over a collection
	FOR_LOOP

	// Module imports
	IMPORT_LIB

	// Misc / direct built-in dispatch
	PRINT
	PRINT_MULTIPLE
	TO_STRING
	GET_TYPE
	GET_LENGTH
	EVAL_AST

	IS_NULL
	IS_BOOL
	IS_NUMBER
	IS_STRING
	IS_ARRAY

	STRING_UPPER
	STRING_LOWER
	STRING_TRIM
	STRING_SPLIT
	STRING_REPLACE

	MATH_ABS
	MATH_SQRT
	MATH_POW
	MATH_FLOOR
	MATH_CEIL
	MATH_ROUND
	MATH_SIN
	MATH_COS
	MATH_TAN

	ARRAY_PUSH
	ARRAY_POP
	ARRAY_CONTAINS
	ARRAY_INDEXOF
	ARRAY_JOIN
	ARRAY_UNIQUE
	ARRAY_SLICE
	ARRAY_CONCAT
)

// opcodeNames backs the disassembler; kept as a map (rather than a
// stringer-generated array) because the const block above is grouped for
// readability, not contiguous by category.
var opcodeNames = map[Opcode]string{
	LOAD_CONST: "LOAD_CONST", LOAD_LOCAL: "LOAD_LOCAL", STORE_LOCAL: "STORE_LOCAL",
	LOAD_GLOBAL: "LOAD_GLOBAL", STORE_GLOBAL: "STORE_GLOBAL", LOAD_VAR: "LOAD_VAR", POP: "POP",

	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD",
	EQ: "EQ", NE: "NE", LT: "LT", LE: "LE", GT: "GT", GE: "GE",
	AND: "AND", OR: "OR", XOR: "XOR", NOT: "NOT", NEG: "NEG",
	BIT_AND: "BIT_AND", BIT_OR: "BIT_OR", BIT_XOR: "BIT_XOR", SHL: "SHL", SHR: "SHR",

	LOAD_NUM: "LOAD_NUM", ADD_NUM: "ADD_NUM", SUB_NUM: "SUB_NUM", MUL_NUM: "MUL_NUM",
	DIV_NUM: "DIV_NUM", LT_NUM: "LT_NUM", LE_NUM: "LE_NUM", GT_NUM: "GT_NUM", GE_NUM: "GE_NUM",
	VALUE_TO_NUM: "VALUE_TO_NUM", NUM_TO_VALUE: "NUM_TO_VALUE",

	JUMP: "JUMP", JUMP_IF_FALSE: "JUMP_IF_FALSE", LOOP_START: "LOOP_START", LOOP_END: "LOOP_END",
	BREAK: "BREAK", CONTINUE: "CONTINUE", RETURN: "RETURN", HALT: "HALT",

	CREATE_ARRAY: "CREATE_ARRAY", CREATE_MAP: "CREATE_MAP", CREATE_SET: "CREATE_SET",
	CREATE_RANGE: "CREATE_RANGE", CREATE_RANGE_STEP: "CREATE_RANGE_STEP",
	CREATE_OBJECT: "CREATE_OBJECT", CREATE_LAMBDA: "CREATE_LAMBDA", CREATE_CLASS: "CREATE_CLASS",

	ARRAY_GET: "ARRAY_GET", ARRAY_SET: "ARRAY_SET", PROPERTY_ACCESS: "PROPERTY_ACCESS",
	PROPERTY_SET: "PROPERTY_SET", METHOD_CALL: "METHOD_CALL",

	CALL_BUILTIN: "CALL_BUILTIN", CALL_USER_FUNCTION: "CALL_USER_FUNCTION",
	CALL_FUNCTION_VALUE: "CALL_FUNCTION_VALUE", DEFINE_FUNCTION: "DEFINE_FUNCTION",
	INSTANTIATE_CLASS: "INSTANTIATE_CLASS",

	TRY_START: "TRY_START", TRY_END: "TRY_END", CATCH: "CATCH", THROW: "THROW",

	MATCH_PATTERN: "MATCH_PATTERN", MATCH_END: "MATCH_END", PATTERN_LITERAL: "PATTERN_LITERAL",
	PATTERN_WILDCARD: "PATTERN_WILDCARD", PATTERN_TYPE: "PATTERN_TYPE",

	FOR_LOOP: "FOR_LOOP", IMPORT_LIB: "IMPORT_LIB",

	PRINT: "PRINT", PRINT_MULTIPLE: "PRINT_MULTIPLE", TO_STRING: "TO_STRING",
	GET_TYPE: "GET_TYPE", GET_LENGTH: "GET_LENGTH", EVAL_AST: "EVAL_AST",

	IS_NULL: "IS_NULL", IS_BOOL: "IS_BOOL", IS_NUMBER: "IS_NUMBER", IS_STRING: "IS_STRING", IS_ARRAY: "IS_ARRAY",

	STRING_UPPER: "STRING_UPPER", STRING_LOWER: "STRING_LOWER", STRING_TRIM: "STRING_TRIM",
	STRING_SPLIT: "STRING_SPLIT", STRING_REPLACE: "STRING_REPLACE",

	MATH_ABS: "MATH_ABS", MATH_SQRT: "MATH_SQRT", MATH_POW: "MATH_POW", MATH_FLOOR: "MATH_FLOOR",
	MATH_CEIL: "MATH_CEIL", MATH_ROUND: "MATH_ROUND", MATH_SIN: "MATH_SIN", MATH_COS: "MATH_COS", MATH_TAN: "MATH_TAN",

	ARRAY_PUSH: "ARRAY_PUSH", ARRAY_POP: "ARRAY_POP", ARRAY_CONTAINS: "ARRAY_CONTAINS",
	ARRAY_INDEXOF: "ARRAY_INDEXOF", ARRAY_JOIN: "ARRAY_JOIN", ARRAY_UNIQUE: "ARRAY_UNIQUE",
	ARRAY_SLICE: "ARRAY_SLICE", ARRAY_CONCAT: "ARRAY_CONCAT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN_OPCODE"
}

// methodOpcodes maps the "well-known method names" spec §4.2 says the
// compiler recognises directly on a method call, each to its direct
// opcode. Anything not in this table falls back to the generic
// METHOD_CALL dispatch, per §4.2: "otherwise fall back to the generic
// METHOD_CALL dispatch."
var methodOpcodes = map[string]Opcode{
	"toString": TO_STRING,
	"type":     GET_TYPE,
	"length":   GET_LENGTH,

	"isNull": IS_NULL, "isBool": IS_BOOL, "isNumber": IS_NUMBER,
	"isString": IS_STRING, "isArray": IS_ARRAY,

	"upper": STRING_UPPER, "lower": STRING_LOWER, "trim": STRING_TRIM,
	"split": STRING_SPLIT, "replace": STRING_REPLACE,

	"abs": MATH_ABS, "sqrt": MATH_SQRT, "pow": MATH_POW,
	"floor": MATH_FLOOR, "ceil": MATH_CEIL, "round": MATH_ROUND,
	"sin": MATH_SIN, "cos": MATH_COS, "tan": MATH_TAN,

	"push": ARRAY_PUSH, "pop": ARRAY_POP, "contains": ARRAY_CONTAINS,
	"indexOf": ARRAY_INDEXOF, "join": ARRAY_JOIN, "unique": ARRAY_UNIQUE,
	"slice": ARRAY_SLICE, "concat": ARRAY_CONCAT,
}
