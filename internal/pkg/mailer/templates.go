package mailer

import (
	"fmt"
	"html"
	"strings"

	"echo-assistant-be/pkg/store"
)

const FilesSubject = "Your requested files"

// FilesBody lists every file as a link paragraph.
func FilesBody(files []store.FileCandidate) string {
	var b strings.Builder
	b.WriteString("<p>Here are the files you requested:</p>")
	for _, f := range files {
		b.WriteString(linkParagraph(f.Name, f.WebURL))
	}
	return b.String()
}

func FileSubject(name string) string {
	return "Here is the file: " + name
}

func linkParagraph(name, url string) string {
	return fmt.Sprintf("<p><a href='%s'>%s</a></p>", html.EscapeString(url), html.EscapeString(name))
}

func fileNames(files []store.FileCandidate) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
