// Package assets embeds the TeX documents shipped with the binary.
//
// # Templates
//
//	templates/
//	├── smoke.tex    # minimal document compiled by `tex2pdf doctor`
//	├── article.tex  # starter article written by `tex2pdf new`
//	└── letter.tex   # starter letter written by `tex2pdf new -t letter`
//
// Templates are addressed by bare name (no extension, no path).
package assets
