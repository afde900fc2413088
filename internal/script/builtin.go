package script

import "embed"

//go:embed builtin/*.js
var builtinFS embed.FS

// builtinFiles are installed in this order when a document is created.
var builtinFiles = []string{"builtin/note.js", "builtin/task.js"}

// Builtins returns the starter scripts shipped with every new document.
// They become ordinary script records: users may edit or disable them.
func Builtins() []Source {
	out := make([]Source, 0, len(builtinFiles))
	for _, path := range builtinFiles {
		text, err := builtinFS.ReadFile(path)
		if err != nil {
			panic("missing embedded script " + path)
		}
		src := string(text)
		out = append(out, Source{Name: ParseMeta(src).Name, Text: src})
	}
	return out
}
