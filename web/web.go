package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates 解析内嵌的页面模板
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}
