package intent

import (
	"path/filepath"
	"slices"
	"strings"
)

// FileType is a spoken file category and the extensions it covers.
type FileType struct {
	Name       string
	Extensions []string
	Keywords   []string
}

// fileTypes is checked in order; the first type with a keyword present in
// the command wins.
var fileTypes = []FileType{
	{Name: "pdf", Extensions: []string{".pdf"}, Keywords: []string{"pdf", "pdf file", "pdf document"}},
	{Name: "word", Extensions: []string{".doc", ".docx"}, Keywords: []string{"word", "word file", "word document", "doc", "docx"}},
	{Name: "excel", Extensions: []string{".xlsx", ".xls"}, Keywords: []string{"excel", "excel file", "spreadsheet", "xlsx", "xls"}},
	{Name: "powerpoint", Extensions: []string{".ppt", ".pptx"}, Keywords: []string{"powerpoint", "presentation", "ppt", "pptx"}},
	{Name: "text", Extensions: []string{".txt"}, Keywords: []string{"text", "text file", "txt"}},
	{Name: "image", Extensions: []string{".jpg", ".jpeg", ".png"}, Keywords: []string{"image", "picture", "photo", "jpg", "jpeg", "png"}},
	{Name: "video", Extensions: []string{".mp4", ".avi", ".mkv"}, Keywords: []string{"video", "movie", "mp4", "avi"}},
	{Name: "audio", Extensions: []string{".mp3", ".wav"}, Keywords: []string{"audio", "music", "song", "mp3", "wav"}},
	{Name: "document", Extensions: []string{".pdf", ".doc", ".docx", ".txt"}, Keywords: []string{"document"}},
}

// Extensions returns the extensions for a file type name, or nil.
func Extensions(typeName string) []string {
	for _, ft := range fileTypes {
		if ft.Name == typeName {
			return append([]string(nil), ft.Extensions...)
		}
	}
	return nil
}

// detectFileType returns the first file type with a keyword among words.
func detectFileType(words []string) (FileType, bool) {
	for _, ft := range fileTypes {
		for _, kw := range ft.Keywords {
			if containsPhrase(words, strings.Fields(kw)) >= 0 {
				return ft, true
			}
		}
	}
	return FileType{}, false
}

// endsWithFileKeyword reports whether the last word is a file-type keyword.
func endsWithFileKeyword(words []string) bool {
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	for _, ft := range fileTypes {
		for _, kw := range ft.Keywords {
			if kw == last {
				return true
			}
		}
	}
	return false
}

// containsPhrase returns the index of phrase in words, or -1.
func containsPhrase(words, phrase []string) int {
	if len(phrase) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j := range phrase {
			if words[i+j] != phrase[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// removePhrases deletes every occurrence of the given phrases from words,
// longest phrase first.
func removePhrases(words []string, phrases ...string) []string {
	ordered := append([]string(nil), phrases...)
	slices.SortStableFunc(ordered, func(a, b string) int {
		return len(strings.Fields(b)) - len(strings.Fields(a))
	})
	out := append([]string(nil), words...)
	for _, p := range ordered {
		pw := strings.Fields(p)
		for {
			i := containsPhrase(out, pw)
			if i < 0 {
				break
			}
			out = append(out[:i], out[i+len(pw):]...)
		}
	}
	return out
}

var extensionDescriptions = map[string]string{
	".pdf":  "PDF",
	".doc":  "Word document",
	".docx": "Word document",
	".txt":  "text file",
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".xlsx": "Excel spreadsheet",
	".xls":  "Excel spreadsheet",
	".pptx": "PowerPoint presentation",
	".ppt":  "PowerPoint presentation",
	".csv":  "CSV file",
	".zip":  "ZIP archive",
	".mp3":  "audio file",
	".mp4":  "video file",
	".py":   "Python file",
	".js":   "JavaScript file",
	".go":   "Go file",
	".html": "HTML file",
	".css":  "CSS file",
}

// DescribeFile returns a spoken description of the file's type, such as
// "PDF" or "Word document". Unknown extensions are described as "file".
func DescribeFile(path string) string {
	if d, ok := extensionDescriptions[strings.ToLower(filepath.Ext(path))]; ok {
		return d
	}
	return "file"
}
