package extract

import (
	"regexp"

	"github.com/simonhull/norms/pkg/project"
)

// BlockStyle is how a language nests declarations
type BlockStyle int

const (
	Braces BlockStyle = iota
	Indent
)

// FuncPattern recognises a callable declaration. The pattern must capture a
// `name` group and may capture `mods`; when BodyStart is set, the text
// following the parameter list must match it for the line to count as a
// definition rather than a call.
type FuncPattern struct {
	Re        *regexp.Regexp
	BodyStart *regexp.Regexp
}

// Profile is the lexical description of one language
type Profile struct {
	Name            string
	LineComments    []string
	BlockComments   [][2]string
	Quotes          []string // single-line string delimiters
	MultilineQuotes []string
	RawQuotes       []string // delimiters without escape sequences
	Blocks          BlockStyle

	// Transparent matches the text before a brace that opens a block
	// without nesting its contents, such as a braced namespace
	Transparent *regexp.Regexp

	// FoldExported treats a leading capital as visibility, not casing
	FoldExported bool
	Declarations []*regexp.Regexp

	ImportStart   *regexp.Regexp
	ImportPath    *regexp.Regexp
	ImportBlock   *regexp.Regexp // opens a multi-line import group
	ImportItem    *regexp.Regexp
	Wildcard      *regexp.Regexp
	LocalImport   *regexp.Regexp // relative or crate-local paths
	PackageDecl   *regexp.Regexp // own package, for prefix-based locality
	PackageLength int            // segments of PackageDecl treated as internal

	Functions        []FuncPattern
	ReturnType       *regexp.Regexp
	AlwaysReturnType bool
	ParamName        *regexp.Regexp
	SkipParams       map[string]bool
	PublicMods       []string
	PrivateMods      []string
	DefaultPublic    bool
	ExportedByCase   bool
	PrivatePrefixes  []string

	Constructor   *regexp.Regexp
	Factories     []*regexp.Regexp
	Statics       []*regexp.Regexp
	IgnoreTargets map[string]bool

	Throws     []*regexp.Regexp
	Results    []*regexp.Regexp
	Callbacks  []*regexp.Regexp
	ErrorTypes []*regexp.Regexp
}

var keywords = set("if", "for", "foreach", "while", "switch", "catch", "return", "function",
	"elseif", "with", "match", "new", "typeof", "sizeof", "super", "do", "else", "case")

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

func res(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var re = regexp.MustCompile

var phpProfile = &Profile{
	Name:          project.PHP,
	LineComments:  []string{"//", "#"},
	BlockComments: [][2]string{{"/*", "*/"}},
	Quotes:        []string{`"`, `'`},
	Transparent:   re(`^\s*namespace(?:\s+\\?[\\\w]+)?\s*$`),
	Declarations: res(
		`^\s*(?:(?:final|abstract|readonly)\s+)*(?:class|interface|trait|enum)\s+(?P<name>\w+)`,
		`^\s*function\s+&?(?P<name>\w+)`,
		`^\s*const\s+(?P<name>\w+)`,
	),
	ImportStart: re(`^\s*use\s+[\\\w]`),
	ImportPath:  re(`^\s*use\s+(?:function\s+|const\s+)?\\?(?P<path>[\\\w]+)`),
	Functions: []FuncPattern{
		{Re: re(`^\s*(?P<mods>(?:(?:public|protected|private|static|final|abstract)\s+)*)function\s+&?(?P<name>\w+)\s*\(`)},
	},
	ReturnType:    re(`^\s*:\s*\??[\\\w]`),
	ParamName:     re(`\$(?P<name>\w+)`),
	PublicMods:    []string{"public"},
	PrivateMods:   []string{"private", "protected"},
	DefaultPublic: true,
	Constructor:   re(`\bfunction\s+__construct\s*\(`),
	Factories: res(
		`->get\(\s*\\?[A-Z][\\\w]*::class`,
		`\$this->container->get\(`,
		`(?:^|[^\w>$])(?:app|resolve)\(`,
		`::getInstance\(`,
		`\b\w+Factory::\w+\(`,
		`->create\(`,
		`\bnew\s+\\?[A-Z]\w*(?:Service|Repository|Client|Manager)\(`,
	),
	Statics:       res(`(?P<target>\b[A-Z]\w*)::(?P<member>[a-z_]\w*)\s*\(`),
	IgnoreTargets: set("self", "static", "parent"),
	Throws:        res(`\bthrow\s+new\b`, `\bcatch\s*\(`),
	Results:       res(`\breturn\s+(?:null|false)\s*;`, `\bResult::(?:ok|err|success|failure)\(`),
	Callbacks:     res(`\bset_error_handler\(`, `->then\(`),
	ErrorTypes: res(
		`\bthrow\s+new\s+(?P<type>\\?[A-Z][\\\w]*)`,
		`\bcatch\s*\(\s*(?P<type>[\\\w|\s]+?)\s*\$`,
	),
}

var goProfile = &Profile{
	Name:          project.Go,
	LineComments:  []string{"//"},
	BlockComments: [][2]string{{"/*", "*/"}},
	Quotes:        []string{`"`, `'`},
	RawQuotes:     []string{"`"},
	FoldExported:  true,
	Declarations: res(
		`^func\s+(?:\([^)]*\)\s*)?(?P<name>\w+)`,
		`^type\s+(?P<name>\w+)`,
		`^(?:var|const)\s+(?P<name>\w+)`,
		`^\s+(?P<name>[A-Za-z_]\w*)(?:\s+[\w.*\[\]]+)?\s*=`,
	),
	ImportStart: re(`^import\s*(?:\w+\s+|\.\s+|_\s+)?"`),
	ImportPath:  re(`"(?P<path>[^"]*)"`),
	ImportBlock: re(`^import\s*\(\s*$`),
	ImportItem:  re(`^\s*(?:[\w.]+\s+)?"(?P<path>[^"]*)"`),
	Wildcard:    re(`^(?:import\s+|\s*)\.\s+"`),
	Functions: []FuncPattern{
		{Re: re(`^func\s+(?:\([^)]*\)\s*)?(?P<name>[A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\(`)},
	},
	ReturnType:     re(`^\s*[^\s{]`),
	ParamName:      re(`^\s*(?P<name>[A-Za-z_]\w*)`),
	ExportedByCase: true,
	Constructor:    re(`^func\s+New\w*\s*(?:\[[^\]]*\])?\(`),
	Factories: res(
		`\b(?:[a-z]\w*\.)?New[A-Z]\w*\(`,
		`\b(?:container|registry|locator)\.(?:Get|Resolve|MustGet)\(`,
	),
	Statics: res(
		`\b(?:http\.DefaultClient|http\.DefaultServeMux|os\.Getenv|log\.(?:Print|Printf|Println|Fatal|Fatalf))\b`,
		`\b[a-z]\w*\.(?:Default|Global|Instance|Shared)\w*\(`,
	),
	Throws:     res(`\bpanic\(`, `\brecover\(\)`),
	Results:    res(`\bif\s+err\s*!=\s*nil\b`, `\berrors\.(?:New|Is|As)\(`, `\bfmt\.Errorf\(`),
	Callbacks:  res(`\bfunc\s*\(\s*err\s+error\s*\)`),
	ErrorTypes: res(`(?:errors\.As\([^,]+,\s*&|\*)(?P<type>[A-Z]\w*Error)\b`, `\b(?P<type>Err[A-Z]\w*)\b`),
}

var pythonProfile = &Profile{
	Name:            project.Python,
	LineComments:    []string{"#"},
	Quotes:          []string{`"`, `'`},
	MultilineQuotes: []string{`"""`, `'''`},
	Blocks:          Indent,
	Declarations: res(
		`^(?:async\s+)?def\s+(?P<name>\w+)`,
		`^class\s+(?P<name>\w+)`,
		`^(?P<name>[A-Za-z_]\w*)\s*(?::[^=]+)?=[^=]`,
	),
	ImportStart: re(`^\s*(?:from\s+[.\w]+\s+import\b|import\s+\w)`),
	ImportPath:  re(`^\s*(?:from|import)\s+(?P<path>[.\w]+)`),
	Wildcard:    re(`\bimport\s+\*`),
	LocalImport: re(`^\.`),
	Functions: []FuncPattern{
		{Re: re(`^\s*(?:async\s+)?def\s+(?P<name>\w+)\s*\(`)},
	},
	ReturnType:      re(`^\s*->`),
	ParamName:       re(`^\s*\**(?P<name>[A-Za-z_]\w*)`),
	SkipParams:      set("self", "cls", "*", "/"),
	DefaultPublic:   true,
	PrivatePrefixes: []string{"_"},
	Constructor:     re(`\bdef\s+__init__\s*\(`),
	Factories: res(
		`\b\w+_factory\(`,
		`\bcreate_\w+\(`,
		`\bget_\w+_(?:service|repository|client|session)\(`,
	),
	Statics: res(
		`\b(?:current_app|g|request|session)\.\w`,
		`\bsettings\.[A-Z_]+\b`,
		`\b[A-Z]\w*\.objects\.`,
	),
	Throws:     res(`\braise\b`, `\bexcept\b`),
	Results:    res(`\breturn\s+None\s*,`, `\b(?:Ok|Err|Success|Failure)\(`),
	Callbacks:  res(`\b(?:on_error|errback|error_callback)\s*=`, `\.add_done_callback\(`),
	ErrorTypes: res(`\braise\s+(?P<type>[A-Z][\w.]*)`, `\bexcept\s*\(?\s*(?P<type>[A-Z][\w.,\s]*?)\s*\)?\s*(?:as\s+\w+\s*)?:`),
}

var javascriptProfile = &Profile{
	Name:            project.JavaScript,
	LineComments:    []string{"//"},
	BlockComments:   [][2]string{{"/*", "*/"}},
	Quotes:          []string{`"`, `'`},
	MultilineQuotes: []string{"`"},
	Declarations: res(
		`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][\w$]*)`,
		`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(?P<name>[A-Za-z_$][\w$]*)`,
		`^(?:export\s+)?(?:const|let|var)\s+(?P<name>[A-Za-z_$][\w$]*)`,
		`^(?:export\s+)?(?:declare\s+)?(?:interface|type|enum)\s+(?P<name>\w+)`,
	),
	ImportStart: re(`^\s*(?:import\b|(?:const|let|var)\s+[\w{},\s]+=\s*require\()`),
	ImportPath:  re(`(?:\bfrom\s*|^\s*import\s*|require\(\s*)["'](?P<path>[^"']*)["']`),
	Wildcard:    re(`\bimport\s+\*\s+as\b`),
	LocalImport: re(`^(?:\.|@/|~/)`),
	Functions: []FuncPattern{
		{Re: re(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\(`)},
		{Re: re(`^\s*(?:export\s+)?(?:const|let)\s+(?P<name>[A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s*)?\(`), BodyStart: re(`^\s*(?::\s*[^=]+)?=>`)},
		{Re: re(`^\s*(?P<mods>(?:(?:public|private|protected|static|async|readonly|override|abstract|get|set)\s+)*)(?P<name>#?[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\(`), BodyStart: re(`^\s*(?::\s*[^;{=]+)?\s*\{`)},
	},
	ReturnType:      re(`^\s*:\s*\S`),
	ParamName:       re(`^\s*(?:(?:public|private|protected|readonly)\s+)*(?:\.\.\.)?(?P<name>[A-Za-z_$][\w$]*)`),
	SkipParams:      set("this"),
	PrivateMods:     []string{"private", "protected"},
	DefaultPublic:   true,
	PrivatePrefixes: []string{"_", "#"},
	Constructor:     re(`^\s*constructor\s*\(`),
	Factories: res(
		`\bcreate[A-Z]\w*\(`,
		`\bnew\s+[A-Z]\w*\(`,
		`\bcontainer\.(?:get|resolve)\(`,
		`(?:^|[^\w.])inject\(`,
	),
	Statics: res(`(?P<target>\b[A-Z]\w*)\.(?P<member>[a-z]\w*)\(`),
	IgnoreTargets: set("Math", "Object", "JSON", "Promise", "Array", "Number", "String", "Date",
		"Reflect", "Symbol", "Boolean", "Error", "Intl", "URL", "Buffer", "React"),
	Throws:     res(`\bthrow\b`, `\bcatch\s*[({]`),
	Results:    res(`\breturn\s*\{\s*(?:ok|error|err|success)\s*:`, `\b(?:ok|err)\(`, `\bResult\.`),
	Callbacks:  res(`\(\s*err\s*(?:,|\))`, `\.catch\(`, `\bfunction\s*\(\s*err\b`),
	ErrorTypes: res(`\bthrow\s+new\s+(?P<type>[A-Z]\w*)`, `\binstanceof\s+(?P<type>[A-Z]\w*Error)\b`),
}

var rubyProfile = &Profile{
	Name:         project.Ruby,
	LineComments: []string{"#"},
	Quotes:       []string{`"`, `'`},
	Blocks:       Indent,
	Declarations: res(
		`^(?:class|module)\s+(?:\w+::)*(?P<name>[A-Z]\w*)`,
		`^def\s+(?:self\.)?(?P<name>\w+)`,
	),
	ImportStart: re(`^\s*require(?:_relative)?\s*\(?\s*["']`),
	ImportPath:  re(`^\s*(?P<rel>require_relative)?(?:require)?\s*\(?\s*["'](?P<path>[^"']*)["']`),
	LocalImport: re(`^\.`),
	Functions: []FuncPattern{
		{Re: re(`^\s*def\s+(?:self\.)?(?P<name>[a-z_]\w*[?!=]?)`)},
	},
	ParamName:       re(`^\s*[*&]{0,2}(?P<name>[a-z_]\w*)`),
	DefaultPublic:   true,
	PrivatePrefixes: []string{"_"},
	Constructor:     re(`\bdef\s+initialize\s*\(`),
	Factories:       res(`\b[A-Z]\w*\.new\b`, `\b\w+_factory\b`, `\bcreate_\w+\(`),
	Statics:         res(`(?P<target>\b[A-Z][\w]*)\.(?P<member>[a-z_]\w*)`),
	IgnoreTargets:   set("new", "class", "name"),
	Throws:          res(`\braise\b`, `\brescue\b`),
	Results:         res(`\bSuccess\(`, `\bFailure\(`, `\breturn\s+\[\s*(?:nil|false)\s*,`),
	Callbacks:       res(`\bon_error\b`, `\berrback\b`),
	ErrorTypes:      res(`\braise\s+(?P<type>[A-Z][\w:]*)`, `\brescue\s+(?P<type>[A-Z][\w:,\s]*?)\s*(?:=>|$)`),
}

var javaProfile = &Profile{
	Name:          project.Java,
	LineComments:  []string{"//"},
	BlockComments: [][2]string{{"/*", "*/"}},
	Quotes:        []string{`"`, `'`},
	Declarations: res(
		`^\s*(?:(?:public|protected|private|abstract|final|static|sealed)\s+)*(?:class|interface|enum|record|@interface)\s+(?P<name>\w+)`,
	),
	ImportStart:   re(`^\s*import\s`),
	ImportPath:    re(`^\s*import\s+(?:static\s+)?(?P<path>[\w.]+)`),
	Wildcard:      re(`\.\*\s*;`),
	PackageDecl:   re(`^\s*package\s+(?P<path>[\w.]+)`),
	PackageLength: 2,
	Functions: []FuncPattern{
		{
			Re:        re(`^\s*(?P<mods>(?:(?:public|protected|private|static|final|abstract|synchronized|default)\s+)+)(?:<[^>]+>\s+)?(?:[\w<>\[\],.?]+(?:,\s+[\w<>\[\],.?]+)*\s+)?(?P<name>[A-Za-z_]\w*)\s*\(`),
			BodyStart: re(`^\s*(?:throws\s+[\w.,\s]+)?[{;]?\s*$`),
		},
	},
	AlwaysReturnType: true,
	ParamName:        re(`(?P<name>[A-Za-z_]\w*)\s*$`),
	PublicMods:       []string{"public"},
	Constructor:      re(`^\s*(?:public|protected|private)\s+[A-Z]\w*\s*\(`),
	Factories: res(
		`\b\w+Factory\.\w+\(`,
		`\bgetBean\(`,
		`\.getInstance\(`,
		`\bnew\s+[A-Z]\w*(?:Service|Repository|Client|Dao)\(`,
	),
	Statics: res(`(?P<target>\b[A-Z]\w*)\.(?P<member>[a-z]\w*)\(`),
	IgnoreTargets: set("Math", "String", "Integer", "Long", "Objects", "Arrays", "Collections",
		"List", "Map", "Set", "Optional", "System", "Stream", "Collectors", "Boolean", "Double",
		"Files", "Paths", "Duration", "Instant", "LocalDate", "LocalDateTime"),
	Throws:     res(`\bthrow\s+new\b`, `\bcatch\s*\(`, `\bthrows\s+[A-Z]`),
	Results:    res(`\bOptional\.(?:empty|of|ofNullable)\(`, `\bEither\.`, `\bResult\.`),
	Callbacks:  res(`\.exceptionally\(`, `\bonError\(`, `\.handle\(`),
	ErrorTypes: res(`\bthrow\s+new\s+(?P<type>[A-Z][\w.]*)`, `\bcatch\s*\(\s*(?:final\s+)?(?P<type>[\w.|\s]+?)\s+\w+\s*\)`, `\bthrows\s+(?P<type>[A-Z][\w.,\s]*?)\s*[{;]`),
}

var rustProfile = &Profile{
	Name:          project.Rust,
	LineComments:  []string{"//"},
	BlockComments: [][2]string{{"/*", "*/"}},
	Quotes:        []string{`"`},
	Declarations: res(
		`^(?:pub(?:\([^)]*\))?\s+)?(?:(?:async|const|unsafe)\s+)*fn\s+(?P<name>\w+)`,
		`^(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|type|mod|union)\s+(?P<name>\w+)`,
		`^(?:pub(?:\([^)]*\))?\s+)?(?:const|static)\s+(?:mut\s+)?(?P<name>\w+)`,
	),
	ImportStart: re(`^\s*(?:pub(?:\([^)]*\))?\s+)?use\s`),
	ImportPath:  re(`^\s*(?:pub(?:\([^)]*\))?\s+)?use\s+(?P<path>[\w:]+)`),
	Wildcard:    re(`::\*\s*;`),
	LocalImport: re(`^(?:crate|super|self)::`),
	Functions: []FuncPattern{
		{Re: re(`^\s*(?P<mods>(?:pub(?:\([^)]*\))?\s+)?(?:(?:async|const|unsafe|extern\s+"[^"]*")\s+)*)fn\s+(?P<name>\w+)\s*(?:<[^>]*>)?\(`)},
	},
	ReturnType:  re(`^\s*->`),
	ParamName:   re(`^\s*(?:mut\s+)?(?P<name>[A-Za-z_]\w*)\s*:`),
	SkipParams:  set("self", "&self", "&mut self", "mut self"),
	PublicMods:  []string{"pub"},
	Constructor: re(`\bfn\s+new\s*\(`),
	Factories:   res(`\b[A-Z]\w*::(?:new|default|builder|from_env|create)\(`),
	Statics:     res(`\blazy_static!`, `\bOnce(?:Cell|Lock)\b`, `\bLazy<`, `\bstatic\s+ref\b`),
	Throws:      res(`\bpanic!\(`, `\.unwrap\(\)`, `\.expect\(`),
	Results:     res(`\bResult<`, `\bOk\(`, `\bErr\(`, `\?;`),
	Callbacks:   res(`\.map_err\(\s*\|`, `\.or_else\(\s*\|`),
	ErrorTypes:  res(`\bResult<[^,>]+,\s*(?P<type>[A-Z][\w:]*)>`, `\bErr\(\s*(?P<type>[A-Z][\w:]*)`),
}

// genericProfile is used for languages without a dedicated profile. It
// knows comments and strings well enough to sample identifiers.
var genericProfile = &Profile{
	Name:          project.Unknown,
	LineComments:  []string{"//", "#"},
	BlockComments: [][2]string{{"/*", "*/"}},
	Quotes:        []string{`"`, `'`},
	Declarations: res(
		`^\s*(?:(?:public|private|export|pub)\s+)?(?:function|func|fn|def|class|struct|type)\s+(?P<name>\w+)`,
	),
	Throws: res(`\bthrow\b`, `\braise\b`),
}

var profiles = map[string]*Profile{
	project.PHP:        phpProfile,
	project.Go:         goProfile,
	project.Python:     pythonProfile,
	project.JavaScript: javascriptProfile,
	project.TypeScript: javascriptProfile,
	project.Ruby:       rubyProfile,
	project.Java:       javaProfile,
	project.Rust:       rustProfile,
}

// ProfileFor returns the lexical profile of lang, falling back to a
// generic profile for unknown languages.
func ProfileFor(lang string) *Profile {
	if p, ok := profiles[lang]; ok {
		return p
	}
	return genericProfile
}
