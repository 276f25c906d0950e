package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScanResources lists the files a .qrc resource collection embeds, relative
// to the .qrc file's directory. A <file> entry naming a directory stands for
// every file below it.
func ScanResources(qrc *Node, contents string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return nil, wrapError(err, ErrCodeResourceUnparseable, "cannot parse %s", qrc.Path)
	}

	base := qrc.Dir()
	var files []string
	doc.Find("file").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name == "" {
			return
		}
		info, err := os.Stat(filepath.Join(base, name))
		if err != nil || !info.IsDir() {
			files = append(files, name)
			return
		}
		files = append(files, filesBelow(base, name)...)
	})
	return files, nil
}

func filesBelow(base, dir string) []string {
	var files []string
	root := filepath.Join(base, dir)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files
}
