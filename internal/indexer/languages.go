package indexer

import (
	"path/filepath"
	"strings"

	"github.com/deepindex/codechunk/internal/models"
)

// Grammar/language names, matching the node-type tables in nodetypes.go.
const (
	langPython     = "python"
	langJavaScript = "javascript"
	langTypeScript = "typescript"
	langTSX        = "tsx"
	langJava       = "java"
	langRust       = "rust"
	langGo         = "go"
	langC          = "c"
	langCPP        = "cpp"
	langCSharp     = "c_sharp"
	langRuby       = "ruby"
	langPHP        = "php"
	langBash       = "bash"
	langLua        = "lua"
	langTOML       = "toml"
)

// nonCodeLanguages are routed to the line-level splitter even though a
// grammar may exist for them (external interfaces, non-code extensions).
var nonCodeLanguages = map[string]bool{
	"css":    true,
	"html":   true,
	"json":   true,
	langTOML: true,
	"yaml":   true,
}

// grammarAvailable lists languages this module has an actual tree-sitter
// subpackage wired for (see SPEC_FULL.md §11 and DESIGN.md). Languages in
// the extension table but absent here always fall back to the line
// splitter, same as a corrupt parse.
var grammarAvailable = map[string]bool{
	langPython:     true,
	langJavaScript: true,
	langTypeScript: true,
	langTSX:        true,
	langJava:       true,
	langRust:       true,
	langGo:         true,
	langC:          true,
	langCPP:        true,
	langCSharp:     true,
	langRuby:       true,
	langBash:       true,
}

// extensionTable is the fixed file extension to language mapping from the
// external interfaces section. A mapped extension does not imply a parser
// is available for it; see grammarAvailable.
var extensionTable = map[string]string{
	"py":  langPython,
	"pyw": langPython,
	"pyi": langPython,

	"js":  langJavaScript,
	"jsx": langJavaScript,
	"mjs": langJavaScript,
	"cjs": langJavaScript,

	"ts":  langTypeScript,
	"mts": langTypeScript,
	"cts": langTypeScript,
	"tsx": langTSX,

	"java": langJava,
	"rs":   langRust,
	"go":   langGo,

	"c": langC,
	"h": langC,

	"cpp": langCPP,
	"hpp": langCPP,
	"cc":  langCPP,
	"cxx": langCPP,
	"hxx": langCPP,
	"cp":  langCPP,
	"hh":  langCPP,
	"inc": langCPP,

	"cs": langCSharp,

	"rb":  langRuby,
	"erb": langRuby,

	"php":   langPHP,
	"phtml": langPHP,
	"php3":  langPHP,
	"php4":  langPHP,
	"php5":  langPHP,
	"php6":  langPHP,
	"php7":  langPHP,
	"phps":  langPHP,

	"sh":   langBash,
	"bash": langBash,

	"lua":  langLua,
	"luau": langLua,

	"toml": langTOML,

	// Declarative types, routed through the non-code splitter regardless of
	// whether a grammar exists for them.
	"css":  "css",
	"html": "html",
	"htm":  "html",
	"json": "json",
	"yaml": "yaml",
	"yml":  "yaml",
}

// LanguageDetector maps file paths to languages using the extension table.
type LanguageDetector struct {
	extMap map[string]string
}

// NewLanguageDetector builds a detector over the fixed extension table.
func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{extMap: extensionTable}
}

// Detect returns the language name for a file path's extension, if any.
func (ld *LanguageDetector) Detect(filePath string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", false
	}
	lang, ok := ld.extMap[ext]
	return lang, ok
}

// IsSupported reports whether a file path has a recognized extension.
func (ld *LanguageDetector) IsSupported(filePath string) bool {
	_, ok := ld.Detect(filePath)
	return ok
}

// IsNonCode reports whether a language is always routed to the line-level
// splitter, independent of grammar availability.
func IsNonCode(language string) bool {
	return nonCodeLanguages[language]
}

// HasGrammar reports whether the AST provider can parse this language.
func HasGrammar(language string) bool {
	return grammarAvailable[language] && !IsNonCode(language)
}

// GetAllLanguages returns one models.Language entry per distinct language
// name in the extension table, used for configuration/status reporting.
func GetAllLanguages() []*models.Language {
	byName := make(map[string][]string)
	for ext, name := range extensionTable {
		byName[name] = append(byName[name], "."+ext)
	}

	langs := make([]*models.Language, 0, len(byName))
	for name, exts := range byName {
		grammar := ""
		if HasGrammar(name) {
			grammar = "tree-sitter-" + name
		}
		langs = append(langs, &models.Language{Name: name, Extensions: exts, Grammar: grammar})
	}
	return langs
}
